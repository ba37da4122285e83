package db

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed sql/pre_automigrate.sql
var preAutoMigrateSQL string

//go:embed sql/post_automigrate.sql
var postAutoMigrateSQL string

// autoMigrate creates the schema, lets gorm reconcile the models, then
// applies the index statements AutoMigrate cannot express.
func (p *Pool) autoMigrate(ctx context.Context) error {
	if p == nil || p.orm == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	if err := p.execEmbedded(ctx, "pre-auto-migrate", preAutoMigrateSQL); err != nil {
		return err
	}
	if err := p.orm.WithContext(ctx).AutoMigrate(autoMigrateModels()...); err != nil {
		return fmt.Errorf("gorm auto-migrate models: %w", err)
	}
	return p.execEmbedded(ctx, "post-auto-migrate", postAutoMigrateSQL)
}

// execEmbedded runs an embedded migration file one statement per Exec. The
// files hold plain DDL, so splitting on ";" is safe.
func (p *Pool) execEmbedded(ctx context.Context, label, script string) error {
	for _, statement := range strings.Split(script, ";") {
		statement = strings.TrimSpace(statement)
		if statement == "" {
			continue
		}
		if err := p.orm.WithContext(ctx).Exec(statement).Error; err != nil {
			return fmt.Errorf("execute %s SQL: %w", label, err)
		}
	}
	return nil
}
