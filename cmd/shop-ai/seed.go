package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashwinyue/shop-ai/internal/database"
	"github.com/ashwinyue/shop-ai/internal/model"
	"github.com/ashwinyue/shop-ai/internal/repository"
)

// readProducts 读取商品 JSON 数组
func readProducts(path string) ([]*model.Product, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var products []*model.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, p := range products {
		if p.ID == 0 || p.Name == "" {
			return nil, fmt.Errorf("product #%d: id and name are required", i)
		}
	}
	return products, nil
}

// productIndexer 商品向量索引的增量写入
type productIndexer interface {
	Index(ctx context.Context, p *model.Product) error
	Remove(ctx context.Context, productID uint) error
}

// syncIndex 上架商品写入索引，下架商品移出索引
func syncIndex(ctx context.Context, idx productIndexer, products []*model.Product) (indexed, removed int, err error) {
	for _, p := range products {
		if !p.IsActive {
			if err := idx.Remove(ctx, p.ID); err != nil {
				return indexed, removed, fmt.Errorf("remove product %d: %w", p.ID, err)
			}
			removed++
			continue
		}
		if err := idx.Index(ctx, p); err != nil {
			return indexed, removed, fmt.Errorf("index product %d: %w", p.ID, err)
		}
		indexed++
	}
	return indexed, removed, nil
}

func importProducts(ctx context.Context, cmd *cobra.Command, db *database.DB, products []*model.Product) error {
	catalog := repository.NewRepositories(db.DB).Catalog
	if err := catalog.Upsert(ctx, products); err != nil {
		return err
	}
	active, err := catalog.CountActive(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d products (%d active)\n", len(products), active)
	return nil
}

func seedCmd(configPath *string) *cobra.Command {
	var (
		rebuild bool
		noIndex bool
	)

	cmd := &cobra.Command{
		Use:   "seed <products.json>",
		Short: "Import catalog products from a JSON file and sync the vector index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			products, err := readProducts(args[0])
			if err != nil {
				return err
			}

			// 只写商品库，不需要 embedding 凭据
			if noIndex {
				cfg, err := loadConfig(ctx, *configPath)
				if err != nil {
					return err
				}
				db, err := database.New(cfg)
				if err != nil {
					return err
				}
				defer db.Close()
				return importProducts(ctx, cmd, db, products)
			}

			a, err := bootstrap(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()
			if err := importProducts(ctx, cmd, a.db, products); err != nil {
				return err
			}

			if rebuild {
				count, err := a.svc.Search.IndexAll(ctx, a.cfg.Search.IndexBatchSize)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Successfully indexed %d products\n", count)
				return nil
			}
			indexed, removed, err := syncIndex(ctx, a.svc.Search, products)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d products, removed %d inactive\n", indexed, removed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&rebuild, "index", false, "rebuild the whole vector index after importing")
	cmd.Flags().BoolVar(&noIndex, "no-index", false, "import into the catalog only, leave the vector index untouched")
	cmd.MarkFlagsMutuallyExclusive("index", "no-index")
	return cmd
}
