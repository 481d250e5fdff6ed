// Package app wires the server dependencies shared by the Lambda and HTTP
// entrypoints.
package app

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"welfare-agent/handler"
	"welfare-agent/internal/config"
	"welfare-agent/internal/integrations/openai"
	"welfare-agent/internal/integrations/paramstore"
	"welfare-agent/internal/usecase"
)

// NewHandler builds the request handler from cfg. The API key comes from
// OPENAI_API_KEY, then from the parameter store when PARAM_PREFIX is set;
// with neither, recommendations always use the fallback set.
func NewHandler(ctx context.Context, cfg config.Server, logger *slog.Logger) (*handler.Handler, error) {
	keys, err := keySource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var opts []openai.Option
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.NewClient(keys, opts...)
	if err != nil {
		return nil, fmt.Errorf("app: create OpenAI client: %w", err)
	}

	recommender, err := usecase.NewRecommendService(llm, cfg.Model, cfg.ReferenceDate, logger)
	if err != nil {
		return nil, fmt.Errorf("app: create recommend service: %w", err)
	}
	responder, err := usecase.NewChatService(llm, cfg.Model, logger)
	if err != nil {
		return nil, fmt.Errorf("app: create chat service: %w", err)
	}

	return handler.NewHandler(recommender, responder, logger)
}

func keySource(ctx context.Context, cfg config.Server) (openai.KeySource, error) {
	if cfg.OpenAIAPIKey != "" || cfg.ParamPrefix == "" {
		return openai.StaticKey(cfg.OpenAIAPIKey), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load AWS config: %w", err)
	}
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("app: create SSM client: %w", err)
	}
	return openai.NewParamStoreKey(ssmClient, cfg.ParamPrefix)
}
