package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"welfare-agent/internal/client"
	"welfare-agent/internal/domain"
	"welfare-agent/internal/repository"
	"welfare-agent/internal/store"
)

// API is the subset of the request client the commands use.
type API interface {
	FetchRecommendations(ctx context.Context, profile domain.UserProfile) ([]domain.Recommendation, error)
	SendChatMessage(ctx context.Context, message string, profile *domain.UserProfile, history []domain.ChatTurn) (string, error)
	Health(ctx context.Context) bool
}

// Session bundles what one command invocation needs.
type Session struct {
	API       API
	Persister store.Persister
	SessionID string
	Close     func() error
}

// Opener builds a Session from the config file at path.
type Opener func(ctx context.Context, configPath string) (*Session, error)

// OpenSession is the production Opener.
func OpenSession(logger *slog.Logger) Opener {
	return func(ctx context.Context, configPath string) (*Session, error) {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}

		api, err := client.New(cfg.ServerURL,
			client.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second),
			client.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}

		sess := &Session{API: api, SessionID: cfg.SessionID, Close: func() error { return nil }}
		switch cfg.StateBackend {
		case BackendDynamoDB:
			awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, fmt.Errorf("loading AWS config: %w", err)
			}
			ddb, err := repository.NewDynamoStateStore(awsdynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable)
			if err != nil {
				return nil, err
			}
			sess.Persister = ddb
		default:
			db, err := repository.NewSQLiteStateStore(cfg.SQLitePath)
			if err != nil {
				return nil, err
			}
			sess.Persister = db
			sess.Close = db.Close
		}
		return sess, nil
	}
}
