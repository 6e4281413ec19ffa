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
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var (
	cfgFile string
	verbose bool
	logFile string
)

var rootCmd = &cobra.Command{
	Use:   "sheetpub",
	Short: "Publish articles planned in a Google Sheet to WordPress",
	Long: `sheetpub reads the rows marked for processing in a Google Sheet, skips
topics that were already published (exact match first, then an LLM check
against the content index), generates an SEO article with an LLM, publishes
it to WordPress and writes the status, slug, URL and post ID back to the sheet.

Settings come from flags, environment variables, an optional config file
and an optional .env file in the working directory.

Use "sheetpub run --help" to start a publishing pass.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (yaml, toml, json or env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file, rotated")
}
