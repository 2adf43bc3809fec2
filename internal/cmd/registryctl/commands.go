package registryctl

import (
	"context"
	"errors"
	"fmt"

	registryservice "github.com/louisbranch/gns/internal/services/registry/api/grpc/registry"
	"github.com/louisbranch/gns/internal/services/registry/domain"
	"github.com/louisbranch/gns/internal/services/registry/journal"
	"github.com/spf13/cobra"
)

func (c *cli) hashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <name>",
		Short: "Print the registry key of a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(c.out, map[string]any{
				"name": args[0],
				"hash": domain.HashName(args[0]).Hex(),
			})
		},
	}
}

func (c *cli) claimCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "claim <domain-name>",
		Short: "Claim a domain for the caller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.unary(cmd, func(ctx context.Context, client *registryservice.Client) error {
				env, err := client.ClaimDomain(ctx, args[0])
				if err != nil {
					return err
				}
				return printEnvelope(c.out, env)
			})
		},
	}
}

func (c *cli) attachCommand() *cobra.Command {
	var subgraph, metadata string
	cmd := &cobra.Command{
		Use:   "attach <domain> <subdomain-name>",
		Short: "Attach a subdomain record under an owned domain",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			subgraphID, err := parseOptionalKey("subgraph", subgraph)
			if err != nil {
				return err
			}
			pointer, err := parseOptionalKey("metadata", metadata)
			if err != nil {
				return err
			}
			return c.unary(cmd, func(ctx context.Context, client *registryservice.Client) error {
				env, err := client.AttachSubdomain(ctx, resolveKey(args[0]), args[1], subgraphID, pointer)
				if err != nil {
					return err
				}
				return printEnvelope(c.out, env)
			})
		},
	}
	cmd.Flags().StringVar(&subgraph, "subgraph", "", "subgraph id (0x-prefixed 32-byte hex)")
	cmd.Flags().StringVar(&metadata, "metadata", "", "metadata pointer (0x-prefixed 32-byte hex)")
	return cmd
}

func (c *cli) setMetadataCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-metadata <domain> <subdomain> <metadata-pointer>",
		Short: "Replace the metadata pointer of a subdomain",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pointer, err := domain.ParseKey(args[2])
			if err != nil {
				return fmt.Errorf("metadata pointer: %w", err)
			}
			return c.unary(cmd, func(ctx context.Context, client *registryservice.Client) error {
				env, err := client.ChangeMetadata(ctx, pointer, resolveKey(args[0]), resolveKey(args[1]))
				if err != nil {
					return err
				}
				return printEnvelope(c.out, env)
			})
		},
	}
}

func (c *cli) setSubgraphCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-subgraph <domain> <subdomain> <subgraph-id>",
		Short: "Replace the subgraph id of an attached subdomain",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			subgraphID, err := domain.ParseKey(args[2])
			if err != nil {
				return fmt.Errorf("subgraph id: %w", err)
			}
			return c.unary(cmd, func(ctx context.Context, client *registryservice.Client) error {
				env, err := client.ChangeSubgraphID(ctx, resolveKey(args[0]), resolveKey(args[1]), subgraphID)
				if err != nil {
					return err
				}
				return printEnvelope(c.out, env)
			})
		},
	}
}

func (c *cli) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <domain> <subdomain>",
		Short: "Delete a subdomain and its pointer record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.unary(cmd, func(ctx context.Context, client *registryservice.Client) error {
				env, err := client.DeleteSubdomain(ctx, resolveKey(args[0]), resolveKey(args[1]))
				if err != nil {
					return err
				}
				return printEnvelope(c.out, env)
			})
		},
	}
}

func (c *cli) accountMetadataCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "account-metadata <metadata-pointer>",
		Short: "Publish an account metadata pointer for the caller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pointer, err := domain.ParseKey(args[0])
			if err != nil {
				return fmt.Errorf("metadata pointer: %w", err)
			}
			return c.unary(cmd, func(ctx context.Context, client *registryservice.Client) error {
				env, err := client.ChangeAccountMetadata(ctx, pointer)
				if err != nil {
					return err
				}
				return printEnvelope(c.out, env)
			})
		},
	}
}

func (c *cli) ownerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "owner <domain>",
		Short: "Show the owner of a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domainHash := resolveKey(args[0])
			return c.unary(cmd, func(ctx context.Context, client *registryservice.Client) error {
				owner, err := client.GetDomainOwner(ctx, domainHash)
				if err != nil {
					return err
				}
				return printJSON(c.out, map[string]any{
					"domain_hash": domainHash.Hex(),
					"owner":       owner.Hex(),
				})
			})
		},
	}
}

func (c *cli) subdomainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "subdomain <domain> <subdomain>",
		Short: "Show whether a subdomain is attached",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			domainHash, subdomainHash := resolveKey(args[0]), resolveKey(args[1])
			return c.unary(cmd, func(ctx context.Context, client *registryservice.Client) error {
				sub, err := client.GetSubdomain(ctx, domainHash, subdomainHash)
				if err != nil {
					return err
				}
				return printJSON(c.out, map[string]any{
					"domain_hash":    domainHash.Hex(),
					"subdomain_hash": subdomainHash.Hex(),
					"exists":         sub.Exists,
					"subdomain_name": sub.Name,
				})
			})
		},
	}
}

func (c *cli) pointerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pointer <subdomain>",
		Short: "Show the subgraph id and metadata pointer of a subdomain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subdomainHash := resolveKey(args[0])
			return c.unary(cmd, func(ctx context.Context, client *registryservice.Client) error {
				pointer, err := client.GetPointer(ctx, subdomainHash)
				if err != nil {
					return err
				}
				return printJSON(c.out, map[string]any{
					"subdomain_hash":   subdomainHash.Hex(),
					"subgraph_id":      pointer.SubgraphID.Hex(),
					"metadata_pointer": pointer.MetadataPointer.Hex(),
				})
			})
		},
	}
}

func (c *cli) eventsCommand() *cobra.Command {
	var (
		afterSeq uint64
		pageSize int
		filter   string
		follow   bool
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List or follow the event journal",
		Long: `List one page of the event journal, or follow it with --follow.

--filter takes an AIP-160 expression over type, actor_id, request_id,
domain_hash, subdomain_hash, seq and ts, for example:
  registryctl events --filter 'type = "subgraph.attached" AND seq > 10'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if follow {
				if filter != "" {
					return errors.New("--filter cannot be combined with --follow")
				}
				return c.withClient(cmd.Context(), func(client *registryservice.Client) error {
					return client.WatchEvents(cmd.Context(), afterSeq, func(env journal.Envelope) error {
						return printEnvelope(c.out, env)
					})
				})
			}
			return c.unary(cmd, func(ctx context.Context, client *registryservice.Client) error {
				page, err := client.ListEvents(ctx, afterSeq, pageSize, filter)
				if err != nil {
					return err
				}
				events := make([]any, 0, len(page.Events))
				for _, env := range page.Events {
					rendered, err := registryservice.EnvelopeToStruct(env)
					if err != nil {
						return err
					}
					events = append(events, rendered.AsMap())
				}
				return printJSON(c.out, map[string]any{
					"events":         events,
					"next_after_seq": page.NextAfterSeq,
				})
			})
		},
	}
	cmd.Flags().Uint64Var(&afterSeq, "after", 0, "list events after this sequence number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "maximum events per page (server default when zero)")
	cmd.Flags().StringVar(&filter, "filter", "", "AIP-160 filter expression")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "stream new events until interrupted")
	return cmd
}

func (c *cli) verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify the journal hash chain and signatures",
		Long: `Download the whole journal and verify its hash chain and HMAC signatures
with the keys in GNS_EVENT_HMAC_KEY or GNS_EVENT_HMAC_KEYS.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keyring, err := journal.KeyringFromEnv()
			if err != nil {
				return err
			}
			return c.withClient(cmd.Context(), func(client *registryservice.Client) error {
				verifier := journal.NewVerifier(keyring)
				var after uint64
				for {
					page, err := client.ListEvents(cmd.Context(), after, 0, "")
					if err != nil {
						return err
					}
					for _, env := range page.Events {
						if err := verifier.Next(env); err != nil {
							return err
						}
					}
					if page.NextAfterSeq == 0 {
						break
					}
					after = page.NextAfterSeq
				}
				last := verifier.Last()
				return printJSON(c.out, map[string]any{
					"verified":   true,
					"head_seq":   last.Seq,
					"chain_hash": last.ChainHash,
				})
			})
		},
	}
}
