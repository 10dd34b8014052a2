package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	kgo "github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"

	"relentless-frontier/common"
	"relentless-frontier/internal/config"
	"relentless-frontier/internal/graph"
)

const checkTimeout = 5 * time.Second

type checkFunc func(ctx context.Context, cfg config.Config) (string, error)

var checks = map[string]checkFunc{
	"redis": checkRedis,
	"kafka": checkKafka,
	"neo4j": checkNeo4j,
}

func newCheckCmd() *cobra.Command {
	var targets []string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify that Redis, Kafka and Neo4j are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			var failed []string
			for _, target := range targets {
				check, ok := checks[target]
				if !ok {
					return fmt.Errorf("unknown check target %q", target)
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
				detail, err := check(ctx, a.cfg)
				cancel()
				if err != nil {
					failed = append(failed, target)
					fmt.Fprintf(cmd.OutOrStdout(), "%-6s FAIL  %v\n", target, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-6s ok    %s\n", target, detail)
			}
			if len(failed) > 0 {
				return fmt.Errorf("unreachable: %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&targets, "targets", []string{"redis", "kafka", "neo4j"}, "dependencies to check")
	return cmd
}

func checkRedis(ctx context.Context, cfg config.Config) (string, error) {
	st, err := common.ConnectStore(ctx, cfg.Redis)
	if err != nil {
		return "", err
	}
	defer func() { _ = st.Disconnect() }()
	host, port := st.Addr()
	return fmt.Sprintf("connected to %s:%d", host, port), nil
}

func checkKafka(ctx context.Context, cfg config.Config) (string, error) {
	conn, err := kgo.DialContext(ctx, "tcp", cfg.Kafka.Broker)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(cfg.Kafka.ClaimsTopic)
	if err != nil {
		return "", fmt.Errorf("read metadata for %s: %w", cfg.Kafka.ClaimsTopic, err)
	}
	return fmt.Sprintf("connected to %s (%s: %d partitions)", cfg.Kafka.Broker, cfg.Kafka.ClaimsTopic, len(partitions)), nil
}

func checkNeo4j(ctx context.Context, cfg config.Config) (string, error) {
	driver, err := graph.NewDriver(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password)
	if err != nil {
		return "", err
	}
	defer func() { _ = driver.Close(context.Background()) }()
	return "connected to " + cfg.Neo4j.URI, nil
}
