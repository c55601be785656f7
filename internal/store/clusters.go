package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// ClusterStore keeps the last observed state of each dedicated cluster
type ClusterStore struct {
	pool *pgxpool.Pool
}

const clusterColumns = `id, name, subscription_id, resource_group, region,
	capacity_gb_per_day, provisioning_state, adopted, tags, observed_at`

func scanCluster(row pgx.Row) (*types.Cluster, error) {
	var cluster types.Cluster
	err := row.Scan(
		&cluster.ID,
		&cluster.Name,
		&cluster.SubscriptionID,
		&cluster.ResourceGroup,
		&cluster.Region,
		&cluster.CapacityGBPerDay,
		&cluster.ProvisioningState,
		&cluster.Adopted,
		&cluster.Tags,
		&cluster.ObservedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cluster, nil
}

// clusterKey normalizes ARM IDs, which compare case-insensitively
func clusterKey(id string) string {
	return strings.ToLower(id)
}

// Upsert records the latest observation of a cluster
func (s *ClusterStore) Upsert(ctx context.Context, cluster *types.Cluster) error {
	query := `
		INSERT INTO clusters (` + clusterColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET capacity_gb_per_day = EXCLUDED.capacity_gb_per_day,
			provisioning_state = EXCLUDED.provisioning_state,
			adopted = EXCLUDED.adopted,
			tags = EXCLUDED.tags,
			observed_at = EXCLUDED.observed_at
	`

	_, err := s.pool.Exec(ctx, query,
		clusterKey(cluster.ID),
		cluster.Name,
		cluster.SubscriptionID,
		cluster.ResourceGroup,
		cluster.Region,
		cluster.CapacityGBPerDay,
		cluster.ProvisioningState,
		cluster.Adopted,
		cluster.Tags,
		cluster.ObservedAt,
	)

	if err != nil {
		return fmt.Errorf("upsert cluster: %w", err)
	}

	return nil
}

// GetByID retrieves a cluster by ARM resource ID
func (s *ClusterStore) GetByID(ctx context.Context, id string) (*types.Cluster, error) {
	query := `SELECT ` + clusterColumns + ` FROM clusters WHERE id = $1`

	cluster, err := scanCluster(s.pool.QueryRow(ctx, query, clusterKey(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cluster: %w", err)
	}

	return cluster, nil
}

// List returns all known clusters ordered by name
func (s *ClusterStore) List(ctx context.Context) ([]*types.Cluster, error) {
	query := `SELECT ` + clusterColumns + ` FROM clusters ORDER BY name`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query clusters: %w", err)
	}
	defer rows.Close()

	clusters := []*types.Cluster{}
	for rows.Next() {
		cluster, err := scanCluster(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cluster: %w", err)
		}
		clusters = append(clusters, cluster)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clusters: %w", err)
	}

	return clusters, nil
}
