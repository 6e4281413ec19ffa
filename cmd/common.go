/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/sheetpub/internal/config"
	"github.com/valpere/sheetpub/internal/llm"
	"github.com/valpere/sheetpub/internal/logging"
	"github.com/valpere/sheetpub/internal/sheet"
	"github.com/valpere/sheetpub/internal/store"
	"github.com/valpere/sheetpub/internal/wordpress"
)

// loadConfig reads settings for cmd. Validation is left to the caller since
// history commands only need the ledger path.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{File: cfgFile, Flags: cmd.Flags()})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		Verbose: verbose,
		File:    cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// buildCompleter constructs the LLM client for the configured provider.
func buildCompleter(ctx context.Context, cfg *config.Config) (llm.Completer, error) {
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		return llm.NewOpenAIClient(cfg.OpenAI), nil
	case config.ProviderGemini:
		client, err := llm.NewGeminiClient(ctx, cfg.Gemini)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}
}

func buildSheet(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*sheet.Client, error) {
	svc, err := sheet.NewService(ctx, cfg.Google)
	if err != nil {
		return nil, err
	}
	return sheet.New(sheet.NewGoogleValues(svc), cfg.Sheet, logger), nil
}

// buildPublisher creates the WordPress client. db may be nil, in which case
// category ids are only cached for the life of the process.
func buildPublisher(cfg *config.Config, db *store.Store, logger *zap.Logger) (*wordpress.Client, error) {
	opts := []wordpress.Option{wordpress.WithLogger(logger)}
	if db != nil {
		opts = append(opts, wordpress.WithCategoryStore(db))
	}
	return wordpress.NewClient(cfg.WordPress, opts...)
}

func openStore(cfg *config.Config) (*store.Store, error) {
	db, err := store.New(cfg.Run.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
