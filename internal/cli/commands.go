package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"welfare-agent/internal/client"
	"welfare-agent/internal/domain"
	"welfare-agent/internal/store"
)

const chatFailureReply = "죄송합니다. 일시적인 오류가 발생했습니다. 다시 시도해주세요."

func (r *runner) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage your profile",
	}

	var p domain.UserProfile
	var income string
	set := &cobra.Command{
		Use:   "set",
		Short: "Submit the profile form",
		Long: fmt.Sprintf(`Submit the profile used for recommendations and chat.

Occupations: %s
Regions: %s
Income: %s`,
			strings.Join(domain.Occupations, ", "),
			strings.Join(domain.Regions, ", "),
			strings.Join(domain.IncomeBrackets, ", ")),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p.Income = domain.Income(income)
			if errs := p.FormErrors(); len(errs) > 0 {
				printFormErrors(cmd, errs)
				return errReported
			}
			return r.withState(cmd, func(_ context.Context, _ *Session, st *store.State) error {
				st.SetProfile(p)
				if err := st.SetScreen(store.ScreenRecommendations); err != nil {
					return err
				}
				cmd.Println("프로필이 저장되었습니다.")
				return nil
			})
		},
	}
	set.Flags().StringVar(&p.Name, "name", "", "name")
	set.Flags().StringVar(&p.Gender, "gender", domain.GenderOther, "남성, 여성 or 기타")
	set.Flags().IntVar(&p.Age, "age", 0, "age in years")
	set.Flags().StringVar(&p.Region, "region", "", "region of residence")
	set.Flags().StringVar(&p.Occupation, "occupation", "", "occupation category")
	set.Flags().StringVar(&income, "income", "", "monthly income bracket")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the saved profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withState(cmd, func(_ context.Context, _ *Session, st *store.State) error {
				p, ok := st.Profile()
				if !ok {
					cmd.Println("저장된 프로필이 없습니다.")
					return nil
				}
				cmd.Printf("이름: %s\n성별: %s\n나이: %d세\n거주지역: %s\n직업: %s\n소득: %s\n",
					p.Name, p.GenderLabel(), p.Age, p.Region, p.Occupation, p.Income)
				return nil
			})
		},
	}

	cmd.AddCommand(set, show)
	return cmd
}

func (r *runner) recommendCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Show recommended benefit programs for your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withState(cmd, func(ctx context.Context, sess *Session, st *store.State) error {
				p, ok := st.Profile()
				if !ok {
					cmd.PrintErrln("프로필을 먼저 입력해주세요. (welfare profile set)")
					return errReported
				}
				if refresh || len(st.Recommendations()) == 0 {
					st.SetLoading(true)
					recs, err := sess.API.FetchRecommendations(ctx, p)
					st.SetLoading(false)
					if err != nil {
						return reportClientError(cmd, err)
					}
					st.SetRecommendations(recs)
				}
				if err := st.SetScreen(store.ScreenRecommendations); err != nil {
					return err
				}
				printRecommendations(cmd, st.Recommendations())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "fetch new recommendations even if some are saved")
	return cmd
}

func (r *runner) chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask the welfare counselor a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.TrimSpace(strings.Join(args, " "))
			if message == "" {
				cmd.PrintErrln("메시지를 입력해주세요.")
				return errReported
			}
			return r.withState(cmd, func(ctx context.Context, sess *Session, st *store.State) error {
				if err := st.SetScreen(store.ScreenChat); err != nil {
					return err
				}
				st.Greet()

				var profile *domain.UserProfile
				if p, ok := st.Profile(); ok {
					profile = &p
				}
				history := st.Chat()
				st.AddChatTurn(domain.RoleUser, message)

				st.SetLoading(true)
				answer, err := sess.API.SendChatMessage(ctx, message, profile, history)
				st.SetLoading(false)
				if err != nil {
					st.AddChatTurn(domain.RoleAssistant, chatFailureReply)
					return reportClientError(cmd, err)
				}
				st.AddChatTurn(domain.RoleAssistant, answer)
				cmd.Println(answer)
				return nil
			})
		},
	}
}

func (r *runner) historyCmd() *cobra.Command {
	var clearChat bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the chat history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withState(cmd, func(_ context.Context, _ *Session, st *store.State) error {
				if clearChat {
					st.ClearChat()
					cmd.Println("대화 기록을 삭제했습니다.")
					return nil
				}
				turns := st.Chat()
				if len(turns) == 0 {
					cmd.Println("대화 기록이 없습니다.")
					return nil
				}
				for _, turn := range turns {
					who := "나"
					if turn.Role == domain.RoleAssistant {
						who = "상담사"
					}
					cmd.Printf("[%s] %s: %s\n", turn.Timestamp.Local().Format("15:04"), who, turn.Content)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&clearChat, "clear", false, "delete the chat history but keep the profile")
	return cmd
}

func (r *runner) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the profile, recommendations and chat history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, err := r.open(ctx, r.configPath)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()
			if err := store.Discard(ctx, sess.Persister, sess.SessionID); err != nil {
				return err
			}
			cmd.Println("모든 정보가 초기화되었습니다.")
			return nil
		},
	}
}

func (r *runner) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := r.open(cmd.Context(), r.configPath)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()
			if !sess.API.Health(cmd.Context()) {
				cmd.PrintErrln("unavailable")
				return errReported
			}
			cmd.Println("ok")
			return nil
		},
	}
}

func reportClientError(cmd *cobra.Command, err error) error {
	var clientErr *client.Error
	if errors.As(err, &clientErr) {
		cmd.PrintErrln(clientErr.Message)
		return errors.Join(errReported, err)
	}
	return err
}

func printFormErrors(cmd *cobra.Command, errs map[string]string) {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		cmd.PrintErrf("%s: %s\n", field, errs[field])
	}
}

func printRecommendations(cmd *cobra.Command, recs []domain.Recommendation) {
	for i, rec := range recs {
		if i > 0 {
			cmd.Println()
		}
		cmd.Printf("%d. %s\n", rec.Rank, rec.Title)
		cmd.Printf("   %s\n", rec.Description)
		cmd.Printf("   신청기한: %s\n", rec.Eligibility.Deadline)
		cmd.Printf("   연령: %s / 거주: %s / 소득: %s\n", rec.Eligibility.AgeRange, rec.Eligibility.Residency, rec.Eligibility.Income)
		if rec.Eligibility.Other != "" {
			cmd.Printf("   기타: %s\n", rec.Eligibility.Other)
		}
		cmd.Printf("   신청방법: %s\n", rec.ApplicationInfo.Method)
		cmd.Printf("   필요서류: %s\n", rec.ApplicationInfo.RequiredDocuments)
	}
}
