package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var migrationsDir string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply or roll back the database schema",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&migrationsDir, "dir", "", "migrations directory (searched upwards from the working directory when empty)")

	open := func() (*migrate.Migrate, error) {
		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			return nil, errors.New("DB_URL environment variable is required")
		}
		path := migrationsDir
		if path == "" {
			found, err := findMigrationsDir()
			if err != nil {
				return nil, err
			}
			path = found
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		return migrate.New("file://"+abs, dbURL)
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(*cobra.Command, []string) error {
				m, err := open()
				if err != nil {
					return err
				}
				defer m.Close()
				if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return err
				}
				log.Println("Migration up successful")
				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			RunE: func(*cobra.Command, []string) error {
				m, err := open()
				if err != nil {
					return err
				}
				defer m.Close()
				if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return err
				}
				log.Println("Migration down successful")
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				m, err := open()
				if err != nil {
					return err
				}
				defer m.Close()
				version, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			},
		},
	)
	return root
}

func findMigrationsDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	candidates := []string{}
	current := cwd
	for i := 0; i < 6; i++ {
		candidates = append(candidates, filepath.Join(current, "migrations"))
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		candidates = append(candidates,
			filepath.Join(exeDir, "migrations"),
			filepath.Join(exeDir, "..", "migrations"),
		)
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && info.IsDir() {
			return candidate, nil
		}
	}
	return "", errors.New("migrations directory not found")
}
