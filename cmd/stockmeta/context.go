package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"stockmeta/internal/batch"
	"stockmeta/internal/config"
	"stockmeta/internal/generator"
	"stockmeta/internal/logging"
	"stockmeta/internal/metadata"
	"stockmeta/internal/notifications"
	"stockmeta/internal/platform"
	"stockmeta/internal/services/gemini"
	"stockmeta/internal/session"
	"stockmeta/internal/upload"
	"stockmeta/internal/workspace"
)

type commandContext struct {
	configFlag *string
	serverFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, serverFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		serverFlag: serverFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if err := config.LoadDotEnv(); err != nil {
			c.configErr = err
			return
		}
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) serverAddr() string {
	if c.serverFlag != nil {
		if addr := strings.TrimSpace(*c.serverFlag); addr != "" {
			return addr
		}
	}
	if cfg, err := c.ensureConfig(); err == nil {
		return cfg.Server.Bind
	}
	return ""
}

func (c *commandContext) client() *controlClient {
	return newControlClient(c.serverAddr())
}

// workspaceSelection overrides the configured defaults for one workspace.
type workspaceSelection struct {
	mode       string
	uploadMode string
	platform   string
}

// openWorkspace builds the full dependency graph for an in-process workspace.
// The returned close func releases the workspace and session store.
func (c *commandContext) openWorkspace(sel workspaceSelection, observers ...batch.Observer) (*workspace.Workspace, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}

	modeValue := cfg.Defaults.Mode
	if sel.mode != "" {
		modeValue = sel.mode
	}
	mode, err := metadata.ParseMode(modeValue)
	if err != nil {
		return nil, nil, err
	}
	platformValue := cfg.Defaults.Platform
	if sel.platform != "" {
		platformValue = sel.platform
	}
	plat, err := platform.Parse(platformValue)
	if err != nil {
		return nil, nil, err
	}
	uploadMode, err := upload.ParseMode(sel.uploadMode)
	if err != nil {
		return nil, nil, err
	}

	store, err := session.Open(cfg.SessionDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open session store: %w", err)
	}

	client := gemini.NewClient(gemini.Config{
		BaseURL:        cfg.Gemini.BaseURL,
		Model:          cfg.Gemini.Model,
		TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
	})
	gen := generator.New(client,
		generator.WithRetryAttempts(cfg.Batch.RetryAttempts),
		generator.WithRetryBase(cfg.RetryBase()),
		generator.WithModelName(cfg.Gemini.Model),
		generator.WithLogger(logger),
	)

	notifier := notifications.NewBatchObserver(cfg, notifications.NewService(cfg), logger)
	ws := workspace.New(workspace.Deps{
		Generator: gen,
		Session:   store,
		Logger:    logger,
		Observers: append([]batch.Observer{notifier}, observers...),
	}, workspace.Options{
		Mode:            mode,
		UploadMode:      uploadMode,
		Platform:        plat,
		GroupSize:       cfg.Batch.GroupSize,
		PausePoll:       cfg.PausePoll(),
		SettleDelay:     cfg.SettleDelay(),
		PreviewMaxEdge:  cfg.Batch.PreviewMaxEdge,
		ExportDir:       cfg.Paths.ExportDir,
		DeveloperEmails: cfg.Session.DeveloperEmails,
		FallbackAPIKey:  cfg.Gemini.APIKey,
	})
	closeFn := func() {
		ws.Close()
		if err := store.Close(); err != nil {
			logger.Warn("close session store", logging.Error(err))
		}
	}
	return ws, closeFn, nil
}

func (c *commandContext) openSession() (*session.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return session.Open(cfg.SessionDBPath())
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
