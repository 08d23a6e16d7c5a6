// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/autostack/gateway/internal/models"
	"github.com/autostack/gateway/pkg/database"
)

var dbSeq atomic.Int64

// NewDB returns a migrated in-memory SQLite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))
	db, err := database.OpenSQLite(context.Background(), dsn, gormlogger.Silent)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts a user with the given tier.
func CreateUser(t *testing.T, db *gorm.DB, email string, tier models.Tier) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "x", Name: email, SubscriptionTier: tier}
	mustCreate(t, db, u)
	return u
}

// CreateProject inserts a project owned by owner.
func CreateProject(t *testing.T, db *gorm.DB, owner *models.User, name string) *models.Project {
	t.Helper()
	p := &models.Project{UserID: owner.ID, Name: name}
	mustCreate(t, db, p)
	return p
}

// CreateAnalysis inserts an analysis for p with the given status and requirements.
func CreateAnalysis(t *testing.T, db *gorm.DB, p *models.Project, status string, requirements map[string]any) *models.CodeAnalysis {
	t.Helper()
	a := &models.CodeAnalysis{ProjectID: p.ID, FilePath: "main.py", Status: status, Requirements: datatypes.JSONMap(requirements)}
	mustCreate(t, db, a)
	return a
}

// CreateTemplate inserts a terraform template for p.
func CreateTemplate(t *testing.T, db *gorm.DB, p *models.Project, cost string) *models.InfrastructureTemplate {
	t.Helper()
	tpl := &models.InfrastructureTemplate{
		ProjectID:       p.ID,
		TemplateType:    models.TemplateTypeTerraform,
		TemplateContent: `resource "aws_instance" "app" {}`,
		EstimatedCost:   decimal.RequireFromString(cost),
		Resources:       datatypes.JSONMap{"compute": "ec2"},
	}
	mustCreate(t, db, tpl)
	return tpl
}

// CreateDeployment inserts a deployment of tpl in the given status.
func CreateDeployment(t *testing.T, db *gorm.DB, tpl *models.InfrastructureTemplate, status models.DeploymentStatus) *models.Deployment {
	t.Helper()
	d := &models.Deployment{TemplateID: tpl.ID, Status: status, Region: "us-west-2", TerraformStateURL: "s3://state/" + tpl.ID.String()}
	mustCreate(t, db, d)
	return d
}

func mustCreate(t *testing.T, db *gorm.DB, v any) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}
