package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/autostack/gateway/internal/downstream"
	"github.com/autostack/gateway/internal/models"
	"github.com/autostack/gateway/internal/testutil"
	appErr "github.com/autostack/gateway/pkg/errors"
)

func TestTriggerAnalysisSendsOneBatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice@example.com", models.TierFree)
	p := testutil.CreateProject(t, e.db, alice, "P1")

	var sent downstream.AnalyzeRequest
	e.analysisClient.On("Analyze", mock.Anything, mock.AnythingOfType("downstream.AnalyzeRequest")).
		Run(func(args mock.Arguments) { sent = args.Get(1).(downstream.AnalyzeRequest) }).
		Return(nil).Once()

	rows, err := e.analysis.Trigger(ctx, alice.ID, &TriggerAnalysisInput{
		ProjectID: p.ID,
		Files: []AnalysisFileInput{
			{Filename: "main.py", Content: "print(1)"},
			{Filename: "app.js", Content: "console.log(1)"},
		},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, p.ID, sent.ProjectID)
	require.Equal(t, []uuid.UUID{rows[0].ID, rows[1].ID}, sent.AnalysisIDs)
	require.Equal(t, "print(1)", sent.Files[0].Content)

	stored, err := e.analyses.ListByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, a := range stored {
		require.Equal(t, models.AnalysisStatusPending, a.Status)
	}
}

func TestTriggerAnalysisFailureMarksRowsFailed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice@example.com", models.TierFree)
	p := testutil.CreateProject(t, e.db, alice, "P1")

	e.analysisClient.On("Analyze", mock.Anything, mock.Anything).Return(unavailable()).Once()

	_, err := e.analysis.Trigger(ctx, alice.ID, &TriggerAnalysisInput{
		ProjectID: p.ID,
		Files:     []AnalysisFileInput{{Filename: "main.py", Content: "print(1)"}, {Filename: "b.py", Content: "x"}},
	})
	require.True(t, appErr.IsCode(err, appErr.CodeUnavailable))

	stored, err := e.analyses.ListByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, a := range stored {
		require.Equal(t, models.AnalysisStatusFailed, a.Status)
	}
}

func TestTriggerAnalysisValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice@example.com", models.TierFree)
	bob := testutil.CreateUser(t, e.db, "bob@example.com", models.TierFree)
	p := testutil.CreateProject(t, e.db, alice, "P1")

	_, err := e.analysis.Trigger(ctx, alice.ID, &TriggerAnalysisInput{ProjectID: p.ID})
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, err = e.analysis.Trigger(ctx, alice.ID, &TriggerAnalysisInput{ProjectID: p.ID, Files: []AnalysisFileInput{{Filename: "a.py"}}})
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, err = e.analysis.Trigger(ctx, bob.ID, &TriggerAnalysisInput{ProjectID: p.ID, Files: []AnalysisFileInput{{Filename: "a.py", Content: "x"}}})
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))

	_, err = e.analysis.Trigger(ctx, alice.ID, &TriggerAnalysisInput{
		ProjectID: p.ID,
		Files:     []AnalysisFileInput{{StorageKey: "projects/someone-else/x/a.py"}},
	})
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestTriggerAnalysisReusesUploadedRows(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice@example.com", models.TierFree)
	p := testutil.CreateProject(t, e.db, alice, "P1")

	uploaded, err := e.projectSvc.UploadFiles(ctx, p.ID, alice.ID, []UploadFile{{Filename: "main.py", Data: []byte("print(1)")}})
	require.NoError(t, err)

	e.analysisClient.On("Analyze", mock.Anything, mock.MatchedBy(func(req downstream.AnalyzeRequest) bool {
		return len(req.AnalysisIDs) == 1 && req.AnalysisIDs[0] == uploaded[0].AnalysisID && req.Files[0].Content == "print(1)"
	})).Return(nil).Once()

	rows, err := e.analysis.Trigger(ctx, alice.ID, &TriggerAnalysisInput{
		ProjectID: p.ID,
		Files:     []AnalysisFileInput{{StorageKey: uploaded[0].StorageKey}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, uploaded[0].AnalysisID, rows[0].ID)

	stored, err := e.analyses.ListByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	_, _, err = e.store.Get(ctx, uploaded[0].StorageKey)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	require.Zero(t, e.store.Len())
}

func TestFailedTriggerKeepsUploadedContent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice@example.com", models.TierFree)
	p := testutil.CreateProject(t, e.db, alice, "P1")

	uploaded, err := e.projectSvc.UploadFiles(ctx, p.ID, alice.ID, []UploadFile{{Filename: "main.py", Data: []byte("print(1)")}})
	require.NoError(t, err)
	e.analysisClient.On("Analyze", mock.Anything, mock.Anything).
		Return(appErr.New(appErr.CodeUnavailable, "analysis service unavailable")).Once()

	_, err = e.analysis.Trigger(ctx, alice.ID, &TriggerAnalysisInput{
		ProjectID: p.ID,
		Files:     []AnalysisFileInput{{StorageKey: uploaded[0].StorageKey}},
	})
	require.True(t, appErr.IsCode(err, appErr.CodeUnavailable))

	data, _, err := e.store.Get(ctx, uploaded[0].StorageKey)
	require.NoError(t, err)
	require.Equal(t, "print(1)", string(data))
}

func TestAnalysisSummary(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice@example.com", models.TierFree)
	p := testutil.CreateProject(t, e.db, alice, "P1")

	empty, err := e.analysis.Summary(ctx, p.ID, alice.ID)
	require.NoError(t, err)
	require.Zero(t, empty.Total)
	require.Equal(t, map[string]int64{"pending": 0, "running": 0, "completed": 0, "failed": 0}, empty.StatusCounts)
	require.Empty(t, empty.Languages)
	require.Empty(t, empty.Requirements)

	a1 := testutil.CreateAnalysis(t, e.db, p, models.AnalysisStatusCompleted,
		map[string]any{"database": "postgres", "cache": "redis", "services": []any{"s3"}})
	a2 := testutil.CreateAnalysis(t, e.db, p, models.AnalysisStatusCompleted,
		map[string]any{"database": "mysql", "cache": "redis", "services": []any{"s3", "sqs"}})
	failed := testutil.CreateAnalysis(t, e.db, p, models.AnalysisStatusFailed, map[string]any{"database": "oracle"})
	testutil.CreateAnalysis(t, e.db, p, models.AnalysisStatusPending, nil)
	e.db.Model(a1).Updates(map[string]any{"language": "python", "framework": "flask", "analysis_results": datatypes.JSONMap{"complexity": 4}})
	e.db.Model(a2).Updates(map[string]any{"language": "javascript", "framework": "express", "analysis_results": datatypes.JSONMap{"complexity": 2.5}})
	e.db.Model(failed).Updates(map[string]any{"language": "cobol", "framework": "cics", "analysis_results": datatypes.JSONMap{"complexity": 100}})

	sum, err := e.analysis.Summary(ctx, p.ID, alice.ID)
	require.NoError(t, err)
	require.EqualValues(t, 4, sum.Total)
	require.EqualValues(t, 2, sum.StatusCounts["completed"])
	require.EqualValues(t, 1, sum.StatusCounts["pending"])
	require.EqualValues(t, 1, sum.StatusCounts["failed"])
	require.Equal(t, []string{"javascript", "python"}, sum.Languages)
	require.Equal(t, []string{"express", "flask"}, sum.Frameworks)
	require.ElementsMatch(t, []any{"postgres", "mysql"}, sum.Requirements["database"])
	require.Equal(t, []any{"redis"}, sum.Requirements["cache"])
	require.Equal(t, []any{"s3", "sqs"}, sum.Requirements["services"])
	require.InDelta(t, 6.5, sum.TotalComplexity, 1e-9)

	bob := testutil.CreateUser(t, e.db, "bob@example.com", models.TierFree)
	_, err = e.analysis.Summary(ctx, p.ID, bob.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestGetAnalysisOwnership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, e.db, "alice@example.com", models.TierFree)
	bob := testutil.CreateUser(t, e.db, "bob@example.com", models.TierFree)
	a := testutil.CreateAnalysis(t, e.db, testutil.CreateProject(t, e.db, alice, "P1"), models.AnalysisStatusPending, nil)

	_, err := e.analysis.GetAnalysis(ctx, a.ID, bob.ID)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	got, err := e.analysis.GetAnalysis(ctx, a.ID, alice.ID)
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)

	list, err := e.analysis.ListByProject(ctx, a.ProjectID, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestMergeRequirements(t *testing.T) {
	merged := mergeRequirements([]map[string]any{
		{"compute": map[string]any{"type": "container", "cpu": "0.5"}, "database": "postgres", "region": "us-east-1", "services": []any{"s3"}},
		{"compute": map[string]any{"cpu": "1"}, "database": "mysql", "region": "us-east-1", "cache": true, "services": []any{"s3", "sqs"}},
	})
	require.Equal(t, map[string]any{
		"compute":  map[string]any{"type": "container", "cpu": []any{"0.5", "1"}},
		"database": []any{"postgres", "mysql"},
		"region":   "us-east-1",
		"cache":    true,
		"services": []any{"s3", "sqs"},
	}, merged)
}

func TestUnionRequirementsFlattensLists(t *testing.T) {
	got := unionRequirements([]map[string]any{
		{"services": []any{"s3"}, "database": "postgres"},
		{"services": []any{"s3", "sqs"}, "database": []any{"postgres", "redis"}},
	})
	require.Equal(t, []any{"s3", "sqs"}, got["services"])
	require.Equal(t, []any{"postgres", "redis"}, got["database"])
}
