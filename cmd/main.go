/*
Copyright 2025 Payintel Authors.

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

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/payintel/payintel"
	"github.com/payintel/payintel/config"
	"github.com/payintel/payintel/database"
	"github.com/payintel/payintel/internal/coordination"
	"github.com/payintel/payintel/internal/notification"
)

// CLI represents the command-line application, encapsulating the root Cobra
// command.
type CLI struct {
	cmd *cobra.Command
}

// appInstance holds the runtime objects shared across commands: the engine,
// the coordinator, and the loaded configuration.
type appInstance struct {
	engine      *payintel.Payintel
	coordinator *payintel.Coordinator
	cnf         *config.Configuration

	// registry maps bank types to adapter factories. Deployments register
	// their adapters here before executeCLI.
	registry payintel.AdapterRegistry
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun sets up the configuration and initializes the engine and coordinator
// before running any command.
func preRun(app *appInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("payintel.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		if err := setupApp(app, cnf); err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}
		app.cnf = cnf

		return nil
	}
}

// setupApp creates the engine, event emitter, and coordinator from the
// provided configuration.
func setupApp(app *appInstance, cfg *config.Configuration) error {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return fmt.Errorf("error getting datasource: %v", err)
	}

	engine, err := payintel.NewPayintel(db)
	if err != nil {
		return fmt.Errorf("error creating engine: %v", err)
	}

	emitter := payintel.NewEventEmitter(cfg, engine.Queue())
	recognizer := payintel.NewHTTPRecognizer(cfg.Recognizer)
	store := coordination.NewRedisStore(engine.Redis())

	if app.registry == nil {
		app.registry = payintel.AdapterRegistry{}
	}

	app.engine = engine
	app.coordinator = payintel.NewCoordinator(engine, store, app.registry, recognizer, emitter)
	return nil
}

// NewCLI creates the command-line interface for the application, wiring the
// workers and bots subcommands onto the root command.
func NewCLI() *CLI {
	var configFile string
	app := &appInstance{}

	var rootCmd = &cobra.Command{
		Use:   "payintel",
		Short: "Bank statement payin reconciliation bots",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./payintel.json", "Configuration file for payintel")
	rootCmd.PersistentPreRunE = preRun(app)

	rootCmd.AddCommand(workerCommands(app))
	rootCmd.AddCommand(botCommands(app))

	return &CLI{cmd: rootCmd}
}

// executeCLI runs the root command, handling any errors that occur during execution.
func (w CLI) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
