package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalnine/promptbench/internal/config"
	"github.com/signalnine/promptbench/internal/llm"
	"github.com/signalnine/promptbench/internal/retry"
)

const pingQuestion = "What is 2 + 3? Reply with #### followed by the number."

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Send one request to check the service connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			opts := cfg.Options()
			svc := llm.NewClient(llm.ClientOpts{
				BaseURL: cfg.Service.BaseURL,
				APIKey:  cfg.APIKey(),
				Model:   opts.Sampling.Model,
				Timeout: cfg.Service.Timeout,
			})
			client := retry.New(svc, retry.Policy{MaxAttempts: opts.MaxRetries, BaseDelay: opts.BaseRetryDelay})

			params := opts.Sampling
			params.MaxTokens = 32
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			start := time.Now()
			resp, attempts, err := client.Do(ctx, []llm.Message{llm.User(pingQuestion)}, params)
			if err != nil {
				return fmt.Errorf("ping %s: %w", cfg.Service.BaseURL, err)
			}
			fmt.Printf("model:    %s\n", resp.Model)
			fmt.Printf("reply:    %s\n", resp.Text)
			fmt.Printf("tokens:   %d prompt, %d completion\n", resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
			fmt.Printf("attempts: %d in %s\n", attempts, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
