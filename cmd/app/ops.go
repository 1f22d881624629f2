package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/LeviathanIsI/barkbase-sub006/internal/application"
	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

var sweepActor = application.SweepActor

func commonFlags(extra ...cli.Flag) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "socket", Value: "/tmp/barkbase-props.sock", Usage: "JSON-RPC unix socket path", Sources: cli.EnvVars("BARKBASE_RPC_SOCKET")},
		&cli.StringFlag{Name: "tenant", Required: true, Usage: "tenant id", Sources: cli.EnvVars("BARKBASE_TENANT")},
		&cli.StringFlag{Name: "actor", Required: true, Usage: "acting user id", Sources: cli.EnvVars("BARKBASE_ACTOR")},
		&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
	}
	return append(flags, extra...)
}

func callerParams(c *cli.Command) (map[string]any, error) {
	tenant, err := uuid.Parse(c.String("tenant"))
	if err != nil {
		return nil, fmt.Errorf("invalid tenant id: %w", err)
	}
	actor, err := uuid.Parse(c.String("actor"))
	if err != nil {
		return nil, fmt.Errorf("invalid actor id: %w", err)
	}
	return map[string]any{"tenant": tenant, "actor": actor}, nil
}

func depsCommand() *cli.Command {
	return &cli.Command{
		Name:  "deps",
		Usage: "Dependency discovery",
		Commands: []*cli.Command{
			{
				Name:  "discover",
				Usage: "Scan formulas, validations and defaults and upsert edges",
				Flags: commonFlags(
					&cli.StringFlag{Name: "property", Usage: "limit the scan to one property id"},
				),
				Action: func(ctx context.Context, c *cli.Command) error {
					params, err := callerParams(c)
					if err != nil {
						return err
					}
					if raw := c.String("property"); raw != "" {
						id, err := uuid.Parse(raw)
						if err != nil {
							return fmt.Errorf("invalid property id: %w", err)
						}
						params["property_id"] = id
					}
					var out struct {
						EdgesWritten int `json:"edges_written"`
					}
					client := newRPCClient(c.String("socket"))
					if err := client.call(ctx, "deps.discover", params, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					fmt.Printf("%d edges written\n", out.EdgesWritten)
					return nil
				},
			},
		},
	}
}

func graphCommand() *cli.Command {
	return &cli.Command{
		Name:  "graph",
		Usage: "Dependency graph queries",
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "Build the dependency graph around a property",
				Flags: commonFlags(
					&cli.StringFlag{Name: "property", Required: true},
					&cli.StringFlag{Name: "direction", Value: "downstream", Usage: "upstream, downstream or both"},
					&cli.IntFlag{Name: "depth", Value: 0, Usage: "traversal depth, 0 for default"},
				),
				Action: func(ctx context.Context, c *cli.Command) error {
					params, err := callerParams(c)
					if err != nil {
						return err
					}
					id, err := uuid.Parse(c.String("property"))
					if err != nil {
						return fmt.Errorf("invalid property id: %w", err)
					}
					params["property_id"] = id
					params["direction"] = c.String("direction")
					params["depth"] = c.Int("depth")

					var out domain.Graph
					client := newRPCClient(c.String("socket"))
					if err := client.call(ctx, "graph.build", params, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printGraph(out)
					return nil
				},
			},
			{
				Name:  "cycles",
				Usage: "Detect dependency cycles",
				Flags: commonFlags(),
				Action: func(ctx context.Context, c *cli.Command) error {
					params, err := callerParams(c)
					if err != nil {
						return err
					}
					var out struct {
						Cycles []domain.Cycle `json:"cycles"`
					}
					client := newRPCClient(c.String("socket"))
					if err := client.call(ctx, "graph.cycles", params, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printCycles(out.Cycles)
					return nil
				},
			},
		},
	}
}

func auditCommand() *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "Show a property's change history",
		Flags: commonFlags(
			&cli.StringFlag{Name: "property", Required: true},
			&cli.IntFlag{Name: "limit", Value: 0, Usage: "max entries, 0 for the default"},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			params, err := callerParams(c)
			if err != nil {
				return err
			}
			id, err := uuid.Parse(c.String("property"))
			if err != nil {
				return fmt.Errorf("invalid property id: %w", err)
			}
			params["property_id"] = id
			params["limit"] = c.Int("limit")

			var out struct {
				Audits []domain.ChangeAudit `json:"audits"`
			}
			client := newRPCClient(c.String("socket"))
			if err := client.call(ctx, "audit.list", params, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printAudits(out.Audits)
			return nil
		},
	}
}

func impactCommand() *cli.Command {
	return &cli.Command{
		Name:  "impact",
		Usage: "Analyze the impact of a planned modification",
		Flags: commonFlags(
			&cli.StringFlag{Name: "property", Required: true},
			&cli.StringFlag{Name: "modification", Value: "delete", Usage: "delete, type_change or archive"},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			params, err := callerParams(c)
			if err != nil {
				return err
			}
			id, err := uuid.Parse(c.String("property"))
			if err != nil {
				return fmt.Errorf("invalid property id: %w", err)
			}
			params["property_id"] = id
			params["modification_type"] = c.String("modification")

			var out domain.Impact
			client := newRPCClient(c.String("socket"))
			if err := client.call(ctx, "impact.analyze", params, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printImpact(out)
			return nil
		},
	}
}

func cascadeCommand() *cli.Command {
	return &cli.Command{
		Name:  "cascade",
		Usage: "Execute a cascade strategy",
		Flags: commonFlags(
			&cli.StringFlag{Name: "property", Required: true},
			&cli.StringFlag{Name: "operation", Value: "archive", Usage: "archive or delete"},
			&cli.StringFlag{Name: "strategy", Required: true, Usage: "cancel, cascade, substitute or force"},
			&cli.StringFlag{Name: "replacement", Usage: "replacement property id for substitute"},
			&cli.BoolFlag{Name: "clear-values", Usage: "clear record values on force"},
			&cli.StringFlag{Name: "reason"},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			params, err := callerParams(c)
			if err != nil {
				return err
			}
			id, err := uuid.Parse(c.String("property"))
			if err != nil {
				return fmt.Errorf("invalid property id: %w", err)
			}
			params["property_id"] = id
			params["operation"] = c.String("operation")
			params["strategy"] = c.String("strategy")

			options := map[string]any{
				"clear_record_values": c.Bool("clear-values"),
				"reason":              c.String("reason"),
			}
			if raw := c.String("replacement"); raw != "" {
				rid, err := uuid.Parse(raw)
				if err != nil {
					return fmt.Errorf("invalid replacement id: %w", err)
				}
				options["replacement_property_id"] = rid
			}
			params["options"] = options

			var out domain.CascadeResult
			client := newRPCClient(c.String("socket"))
			if err := client.call(ctx, "cascade.execute", params, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printCascadeResult(out)
			return nil
		},
	}
}

func lifecycleCommand() *cli.Command {
	return &cli.Command{
		Name:  "lifecycle",
		Usage: "Soft delete, restore and archive restoration",
		Commands: []*cli.Command{
			{
				Name:  "soft-delete",
				Flags: commonFlags(
					&cli.StringFlag{Name: "property", Required: true},
					&cli.StringFlag{Name: "reason"},
					&cli.BoolFlag{Name: "confirm", Usage: "acknowledge warnings and proceed"},
				),
				Action: func(ctx context.Context, c *cli.Command) error {
					params, err := callerParams(c)
					if err != nil {
						return err
					}
					id, err := uuid.Parse(c.String("property"))
					if err != nil {
						return fmt.Errorf("invalid property id: %w", err)
					}
					params["property_id"] = id
					params["reason"] = c.String("reason")
					params["confirmed"] = c.Bool("confirm")

					var out domain.SoftDeleteResult
					client := newRPCClient(c.String("socket"))
					if err := client.call(ctx, "lifecycle.softDelete", params, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					fmt.Printf("soft deleted %s (%d edges deactivated, risk %s)\n", out.PropertyID, out.DeactivatedEdges, out.RiskLevel)
					return nil
				},
			},
			{
				Name:  "restore",
				Flags: commonFlags(&cli.StringFlag{Name: "property", Required: true}),
				Action: func(ctx context.Context, c *cli.Command) error {
					params, err := callerParams(c)
					if err != nil {
						return err
					}
					id, err := uuid.Parse(c.String("property"))
					if err != nil {
						return fmt.Errorf("invalid property id: %w", err)
					}
					params["property_id"] = id

					var out domain.RestoreResult
					client := newRPCClient(c.String("socket"))
					if err := client.call(ctx, "lifecycle.restore", params, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					fmt.Printf("restored %s (%d edges reactivated)\n", out.PropertyID, out.ReactivatedEdges)
					return nil
				},
			},
			{
				Name:  "request-restore",
				Flags: commonFlags(
					&cli.StringFlag{Name: "property", Required: true},
					&cli.StringFlag{Name: "reason", Required: true},
				),
				Action: func(ctx context.Context, c *cli.Command) error {
					params, err := callerParams(c)
					if err != nil {
						return err
					}
					id, err := uuid.Parse(c.String("property"))
					if err != nil {
						return fmt.Errorf("invalid property id: %w", err)
					}
					params["property_id"] = id
					params["reason"] = c.String("reason")

					var out domain.RestorationRequest
					client := newRPCClient(c.String("socket"))
					if err := client.call(ctx, "lifecycle.requestRestore", params, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					fmt.Printf("restoration request %d recorded (%s)\n", out.ID, out.Status)
					return nil
				},
			},
			{
				Name:  "approve-restore",
				Flags: commonFlags(&cli.UintFlag{Name: "request", Required: true}),
				Action: func(ctx context.Context, c *cli.Command) error {
					params, err := callerParams(c)
					if err != nil {
						return err
					}
					params["request_id"] = c.Uint("request")

					var out domain.RestoreResult
					client := newRPCClient(c.String("socket"))
					if err := client.call(ctx, "lifecycle.approveRestore", params, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					fmt.Printf("restored %s (%d edges reactivated)\n", out.PropertyID, out.ReactivatedEdges)
					return nil
				},
			},
			{
				Name:  "reject-restore",
				Flags: commonFlags(
					&cli.UintFlag{Name: "request", Required: true},
					&cli.StringFlag{Name: "reason"},
				),
				Action: func(ctx context.Context, c *cli.Command) error {
					params, err := callerParams(c)
					if err != nil {
						return err
					}
					params["request_id"] = c.Uint("request")
					params["reason"] = c.String("reason")

					var out domain.RestorationRequest
					client := newRPCClient(c.String("socket"))
					if err := client.call(ctx, "lifecycle.rejectRestore", params, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					fmt.Printf("restoration request %d rejected\n", out.ID)
					return nil
				},
			},
		},
	}
}
