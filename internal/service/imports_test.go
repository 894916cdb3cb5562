package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GetThruTools/ThruText-API/internal/domain"
	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
	"github.com/GetThruTools/ThruText-API/internal/metrics"
	"github.com/GetThruTools/ThruText-API/internal/store/sqlite"
	"github.com/GetThruTools/ThruText-API/internal/thrutext"
)

const contactsCSV = "first,one,last,two,phone\nAda,x,Lovelace,y,5550100\nAlan,z,Turing,w,5550101\n"

// fakeGroups records CreateGroup calls. When release is set, calls block until
// it is closed.
type fakeGroups struct {
	mu      sync.Mutex
	calls   int
	last    thrutext.CreateGroupParams
	err     error
	release chan struct{}
}

func (g *fakeGroups) CreateGroup(_ context.Context, params thrutext.CreateGroupParams) (*thrutext.Group, error) {
	if g.release != nil {
		<-g.release
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.last = params
	if g.err != nil {
		return nil, g.err
	}
	return &thrutext.Group{ID: fmt.Sprintf("12%02d", g.calls), Name: params.Name}, nil
}

func setupImportService(t *testing.T) (*ImportService, *fakeGroups) {
	t.Helper()

	fields, _, _ := setupFieldService(t)
	_, err := fields.Reload(context.Background(), false)
	require.NoError(t, err)

	log, err := sqlite.Open(filepath.Join(t.TempDir(), "imports.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	groups := &fakeGroups{}
	return NewImportService(fields, groups, log, metrics.New(), nil), groups
}

func TestImportService_Import(t *testing.T) {
	svc, groups := setupImportService(t)
	ctx := context.Background()

	result, err := svc.ImportReader(ctx, strings.NewReader(contactsCSV), ImportRequest{
		GroupName: "  Volunteers  ",
		FileName:  "volunteers.csv",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, groups.calls)
	assert.Equal(t, "Volunteers", groups.last.Name)
	require.Len(t, groups.last.Rows, 3)
	assert.Equal(t, []string{"first", "one", "last", "two", "phone"}, groups.last.Rows[0])
	assert.Len(t, groups.last.Mapping.Custom, 2)

	require.NotNil(t, result.Group)
	assert.Equal(t, "1201", result.Group.ID)
	assert.Equal(t, domain.ImportSucceeded, result.Import.Status)
	assert.Equal(t, "1201", result.Import.RemoteGroupID)
	assert.Equal(t, 2, result.Import.Rows)

	stored, err := svc.GetImport(ctx, result.Import.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportSucceeded, stored.Status)
	assert.Equal(t, "volunteers.csv", stored.FileName)
	assert.JSONEq(t, `{"first_name":0,"last_name":2,"phone":4}`, string(stored.Critical))
	assert.JSONEq(t, `[{"custom_field_id":1,"column":1},{"custom_field_id":2,"column":3}]`, string(stored.CustomFields))
}

func TestImportService_RefusesDuplicateContent(t *testing.T) {
	svc, groups := setupImportService(t)
	ctx := context.Background()

	first, err := svc.ImportReader(ctx, strings.NewReader(contactsCSV), ImportRequest{GroupName: "Volunteers"})
	require.NoError(t, err)

	// A BOM does not change the content.
	again, err := svc.ImportReader(ctx, strings.NewReader("\ufeff"+contactsCSV), ImportRequest{GroupName: "Volunteers 2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
	assert.Equal(t, first.Import.ID, again.Import.ID)
	assert.Equal(t, 1, groups.calls)

	forced, err := svc.ImportReader(ctx, strings.NewReader(contactsCSV), ImportRequest{GroupName: "Volunteers 2", Force: true})
	require.NoError(t, err)
	assert.Equal(t, 2, groups.calls)
	assert.Equal(t, "1202", forced.Group.ID)

	imports, err := svc.ListImports(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, imports, 2)
}

func TestImportService_ConcurrentDuplicates(t *testing.T) {
	svc, groups := setupImportService(t)
	groups.release = make(chan struct{})
	ctx := context.Background()

	const uploads = 6
	results := make(chan error, uploads)
	for i := range uploads {
		go func() {
			_, err := svc.ImportReader(ctx, strings.NewReader(contactsCSV), ImportRequest{
				GroupName: fmt.Sprintf("Volunteers %d", i),
			})
			results <- err
		}()
	}

	// The winner is held inside CreateGroup, so every other upload must
	// return on its own, refused while the first one is still pending.
	for range uploads - 1 {
		select {
		case err := <-results:
			assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
		case <-time.After(5 * time.Second):
			t.Fatal("more than one upload reached the remote service")
		}
	}
	close(groups.release)
	require.NoError(t, <-results)
	assert.Equal(t, 1, groups.calls)

	imports, err := svc.ListImports(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, imports, 1)
}

func TestImportService_RemoteFailure(t *testing.T) {
	svc, groups := setupImportService(t)
	ctx := context.Background()

	groups.err = fmt.Errorf("createGroup: %w", thrutext.ErrServer)
	result, err := svc.ImportReader(ctx, strings.NewReader(contactsCSV), ImportRequest{GroupName: "Volunteers"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrRemote)
	assert.ErrorIs(t, err, thrutext.ErrServer)
	assert.Equal(t, domain.ImportFailed, result.Import.Status)
	assert.Contains(t, result.Import.Error, "createGroup")

	stored, err := svc.GetImport(ctx, result.Import.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportFailed, stored.Status)

	// A failed attempt does not block a retry.
	groups.err = nil
	_, err = svc.ImportReader(ctx, strings.NewReader(contactsCSV), ImportRequest{GroupName: "Volunteers"})
	require.NoError(t, err)
}

func TestImportService_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		req     ImportRequest
		wantErr error
	}{
		{
			name:    "missing group name",
			csv:     contactsCSV,
			req:     ImportRequest{GroupName: " "},
			wantErr: domainerrors.ErrValidation,
		},
		{
			name:    "missing critical column",
			csv:     "first,last\nAda,Lovelace\n",
			req:     ImportRequest{GroupName: "Volunteers"},
			wantErr: domainerrors.ErrMissingCriticalField,
		},
		{
			name:    "duplicate column",
			csv:     "first,first_name,last,phone\nAda,Ada,Lovelace,555\n",
			req:     ImportRequest{GroupName: "Volunteers"},
			wantErr: domainerrors.ErrAmbiguousColumns,
		},
		{
			name:    "empty file",
			csv:     "\n",
			req:     ImportRequest{GroupName: "Volunteers"},
			wantErr: domainerrors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, groups := setupImportService(t)
			ctx := context.Background()

			_, err := svc.ImportReader(ctx, strings.NewReader(tt.csv), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, groups.calls)

			imports, err := svc.ListImports(ctx, 10)
			require.NoError(t, err)
			assert.Empty(t, imports)
		})
	}
}

func TestRemoteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want *domainerrors.Error
	}{
		{"not found", thrutext.ErrNotFound, domainerrors.ErrNotFound},
		{"unauthorized", thrutext.ErrUnauthorized, domainerrors.ErrUnauthorized},
		{"no session", thrutext.ErrNotLoggedIn, domainerrors.ErrUnauthorized},
		{"server", thrutext.ErrServer, domainerrors.ErrRemote},
		{"domain error kept", domainerrors.Validation("bad"), domainerrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, remoteError(tt.err, "op"), tt.want)
		})
	}
}
