package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/domain"
)

type federationRepo struct {
	q querier
}

func (r *federationRepo) GetFederationConfig(ctx context.Context, tenantID, protocol string) (domain.FederationConfig, error) {
	var raw string
	err := r.q.QueryRowContext(ctx,
		`SELECT config FROM federation_configs WHERE tenant_id = ? AND protocol = ?`,
		tenantID, protocol).Scan(&raw)
	if err != nil {
		return domain.FederationConfig{}, mapNotFound(err)
	}
	return decodeFederationConfig(tenantID, protocol, raw)
}

func (r *federationRepo) UpsertFederationConfig(ctx context.Context, cfg domain.FederationConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO federation_configs (tenant_id, protocol, config, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (tenant_id, protocol) DO UPDATE SET config = excluded.config, updated_at = excluded.updated_at`,
		cfg.TenantID, cfg.Protocol, string(raw), formatTime(time.Now()))
	return err
}

func (r *federationRepo) ListFederationConfigs(ctx context.Context) ([]domain.FederationConfig, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT tenant_id, protocol, config FROM federation_configs ORDER BY tenant_id, protocol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FederationConfig
	for rows.Next() {
		var tenant, protocol, raw string
		if err := rows.Scan(&tenant, &protocol, &raw); err != nil {
			return nil, err
		}
		cfg, err := decodeFederationConfig(tenant, protocol, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

func decodeFederationConfig(tenantID, protocol, raw string) (domain.FederationConfig, error) {
	var cfg domain.FederationConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return domain.FederationConfig{}, fmt.Errorf("decode federation config %s/%s: %w", tenantID, protocol, err)
	}
	cfg.TenantID = tenantID
	cfg.Protocol = protocol
	return cfg, nil
}
