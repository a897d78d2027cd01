// Package main is tenantctl, an operator tool for tenant schemas.
//
// Usage:
//
//	tenantctl provision <tenant-uuid>
//	tenantctl deprovision <tenant-uuid>
//	tenantctl exists <tenant-uuid>
//	tenantctl list
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/curbsidehq/curbside/internal/config"
	"github.com/curbsidehq/curbside/internal/store"
)

const opTimeout = 2 * time.Minute

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(os.Args[1:]); err != nil {
		slog.Error("tenantctl failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: tenantctl <provision|deprovision|exists|list> [tenant-uuid]")
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	s := store.New(pool)

	switch cmd := args[0]; cmd {
	case "provision":
		id, err := argTenantID(args)
		if err != nil {
			return err
		}
		if err := s.Provision(ctx, id); err != nil {
			return fmt.Errorf("provision %s: %w", id, err)
		}
		fmt.Printf("provisioned tenant schema for %s\n", id)
		return nil

	case "deprovision":
		id, err := argTenantID(args)
		if err != nil {
			return err
		}
		if err := s.Deprovision(ctx, id); err != nil {
			return fmt.Errorf("deprovision %s: %w", id, err)
		}
		fmt.Printf("dropped tenant schema for %s\n", id)
		return nil

	case "exists":
		id, err := argTenantID(args)
		if err != nil {
			return err
		}
		exists, err := s.SchemaExists(ctx, id)
		if err != nil {
			return fmt.Errorf("check schema for %s: %w", id, err)
		}
		fmt.Println(exists)
		return nil

	case "list":
		schemas, err := s.ListTenantSchemas(ctx)
		if err != nil {
			return fmt.Errorf("list tenant schemas: %w", err)
		}
		for _, schema := range schemas {
			fmt.Println(schema)
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func argTenantID(args []string) (uuid.UUID, error) {
	if len(args) < 2 {
		return uuid.Nil, fmt.Errorf("%s requires a tenant uuid", args[0])
	}
	id, err := uuid.Parse(args[1])
	if err != nil {
		return uuid.Nil, fmt.Errorf("malformed tenant uuid %q: %w", args[1], err)
	}
	return id, nil
}
