package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rhuss/respkit/pkg/checkpoint"
	"github.com/rhuss/respkit/pkg/checkpoint/redis"
	"github.com/rhuss/respkit/pkg/config"
	"github.com/rhuss/respkit/pkg/storage/postgres"
)

const checkpointArgs = "<namespace> <event-hub> <consumer-group> <partition-id>"

func newCheckpointCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Read and write Event Hubs checkpoints",
		Long: `Read and write consumer checkpoints in the backend named by
checkpoint.type. The memory backend forgets everything when the command
exits and is only useful for trying the command out.`,
	}
	cmd.AddCommand(newCheckpointGetCmd(a), newCheckpointSetCmd(a))
	return cmd
}

func newCheckpointGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get " + checkpointArgs,
		Short: "Print a stored checkpoint",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeKV, err := openCheckpoints(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer closeKV()

			cp, err := store.GetCheckpoint(cmd.Context(), args[0], args[1], args[2], args[3])
			if err != nil {
				return err
			}
			printCheckpoint(cmd.OutOrStdout(), cp)
			return nil
		},
	}
}

func newCheckpointSetCmd(a *app) *cobra.Command {
	var (
		offset   string
		sequence int64
	)
	cmd := &cobra.Command{
		Use:   "set " + checkpointArgs + " [--offset O] [--sequence N]",
		Short: "Store a checkpoint",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cp := checkpoint.Checkpoint{
				FullyQualifiedNamespace: args[0],
				EventHubName:            args[1],
				ConsumerGroup:           args[2],
				PartitionID:             args[3],
			}
			if cmd.Flags().Changed("offset") {
				cp.Offset = &offset
			}
			if cmd.Flags().Changed("sequence") {
				cp.SequenceNumber = &sequence
			}

			store, closeKV, err := openCheckpoints(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer closeKV()
			if err := store.UpdateCheckpoint(cmd.Context(), cp); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), checkpoint.Key(cp.FullyQualifiedNamespace, cp.EventHubName, cp.ConsumerGroup, cp.PartitionID))
			return nil
		},
	}
	cmd.Flags().StringVar(&offset, "offset", "", "event offset")
	cmd.Flags().Int64Var(&sequence, "sequence", 0, "event sequence number")
	cmd.MarkFlagsOneRequired("offset", "sequence")
	return cmd
}

func openCheckpoints(ctx context.Context, cfg *config.Config) (*checkpoint.Store, func(), error) {
	switch cfg.Checkpoint.Type {
	case "redis":
		kv, err := redis.New(ctx, redis.Params{
			URL:       cfg.Checkpoint.Redis.URL,
			KeyPrefix: cfg.Checkpoint.Redis.KeyPrefix,
			TTL:       cfg.Checkpoint.Redis.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		return checkpoint.NewStore(kv), func() { kv.Close() }, nil
	case "postgres":
		pg, err := postgres.New(ctx, postgresConfig(cfg))
		if err != nil {
			return nil, nil, err
		}
		return checkpoint.NewStore(pg), func() { pg.Close() }, nil
	default:
		return checkpoint.NewStore(checkpoint.NewMemoryKV()), func() {}, nil
	}
}

func printCheckpoint(w io.Writer, cp *checkpoint.Checkpoint) {
	fmt.Fprintf(w, "%s/%s/%s/%s\n", cp.FullyQualifiedNamespace, cp.EventHubName, cp.ConsumerGroup, cp.PartitionID)
	if cp.Offset != nil {
		fmt.Fprintf(w, "offset:          %s\n", *cp.Offset)
	}
	if cp.SequenceNumber != nil {
		fmt.Fprintf(w, "sequence number: %d\n", *cp.SequenceNumber)
	}
}
