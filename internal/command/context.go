package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/adamavenir/agora/internal/api"
	"github.com/adamavenir/agora/internal/config"
	"github.com/adamavenir/agora/internal/logging"
	"github.com/adamavenir/agora/internal/messenger"
	"github.com/adamavenir/agora/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// CommandContext provides shared command resources.
type CommandContext struct {
	Config    *config.Config
	Session   *session.Session
	Client    *api.Client
	Messenger *messenger.Messenger
	Logger    *zap.Logger
	JSONMode  bool
}

// Close flushes the logger.
func (c *CommandContext) Close() {
	_ = c.Logger.Sync()
}

// loadConfig resolves the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if baseURL, _ := cmd.Flags().GetString("base-url"); strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// GetContext loads config, credentials and the conversation list.
func GetContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newContext(cmd, cfg)
}

func newContext(cmd *cobra.Command, cfg *config.Config) (*CommandContext, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	sess, err := session.Load(cfg.CredentialsPath)
	if err != nil {
		return nil, err
	}
	client, err := api.NewClient(cfg.BaseURL, sess, api.Options{
		Timeout: cfg.RequestTimeout,
		RPS:     cfg.RateLimit.RPS,
		Burst:   cfg.RateLimit.Burst,
		Logger:  logger.Named("api"),
	})
	if err != nil {
		return nil, err
	}
	jsonMode, _ := cmd.Flags().GetBool("json")

	ctx := &CommandContext{
		Config:   cfg,
		Session:  sess,
		Client:   client,
		Logger:   logger,
		JSONMode: jsonMode,
		Messenger: messenger.New(sess, client, messenger.Options{
			MutationTimeout: cfg.MutationTimeout,
			Logger:          logger.Named("messenger"),
		}),
	}
	if err := ctx.Messenger.RefreshConversations(commandContext(cmd)); err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}
	return ctx, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openConversation resolves ref and opens it, loading its thread.
func (c *CommandContext) openConversation(cmd *cobra.Command, ref string) error {
	conv, err := c.Messenger.Resolve(ref)
	if err != nil {
		return err
	}
	return c.Messenger.Open(commandContext(cmd), conv.ID)
}

// resolveMessageRef accepts a full message id, with or without '#', or a
// unique prefix within the open thread.
func (c *CommandContext) resolveMessageRef(ref string) (string, error) {
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "#")
	if ref == "" {
		return "", fmt.Errorf("message id is required")
	}
	var matches []string
	for _, msg := range c.Messenger.Messages() {
		if msg.ID == ref {
			return msg.ID, nil
		}
		if strings.HasPrefix(msg.ID, ref) {
			matches = append(matches, msg.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("message not found: %s", ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ambiguous message id %s matches %d messages", ref, len(matches))
	}
}

func stdoutFd() int {
	return int(os.Stdout.Fd())
}
