package verify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"permadeploy/internal/gateway"
	"permadeploy/internal/manifest"
	"permadeploy/internal/pd"
)

type fakeGateway struct {
	graphql    map[string]*gateway.TxInfo
	graphqlErr error
	status     map[string]*gateway.StatusInfo
	statusErr  error
	content    map[string][]byte
	missing    map[string]bool

	mu      sync.Mutex
	fetched []string
}

func (f *fakeGateway) QueryTransaction(_ context.Context, id string) (*gateway.TxInfo, error) {
	if f.graphqlErr != nil {
		return nil, f.graphqlErr
	}
	return f.graphql[id], nil
}

func (f *fakeGateway) TransactionStatus(_ context.Context, id string) (*gateway.StatusInfo, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if st, ok := f.status[id]; ok {
		return st, nil
	}
	return &gateway.StatusInfo{}, nil
}

func (f *fakeGateway) Fetch(_ context.Context, id string) ([]byte, error) {
	f.record(id)
	if data, ok := f.content[id]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("%w: content %s", pd.ErrNotFound, id)
}

func (f *fakeGateway) Accessible(_ context.Context, id string) error {
	f.record(id)
	if f.missing[id] {
		return fmt.Errorf("%w: content %s", pd.ErrNotFound, id)
	}
	return nil
}

func (f *fakeGateway) record(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, id)
}

func TestVerifyTransaction(t *testing.T) {
	t.Parallel()
	netErr := fmt.Errorf("%w: timeout", pd.ErrNetwork)

	tests := []struct {
		name           string
		gw             *fakeGateway
		wantStatus     pd.TxStatus
		wantExists     bool
		wantAccessible bool
		wantHeight     int64
	}{
		{
			name:           "confirmed via graphql",
			gw:             &fakeGateway{graphql: map[string]*gateway.TxInfo{"tx": {ID: "tx", Confirmed: true, BlockHeight: 42}}},
			wantStatus:     pd.TxConfirmed,
			wantExists:     true,
			wantAccessible: true,
			wantHeight:     42,
		},
		{
			name: "graphql down, status confirms",
			gw: &fakeGateway{
				graphqlErr: netErr,
				status:     map[string]*gateway.StatusInfo{"tx": {Found: true, Confirmed: true, BlockHeight: 7}},
			},
			wantStatus:     pd.TxConfirmed,
			wantExists:     true,
			wantAccessible: true,
			wantHeight:     7,
		},
		{
			name:           "known but unconfirmed",
			gw:             &fakeGateway{graphql: map[string]*gateway.TxInfo{"tx": {ID: "tx"}}},
			wantStatus:     pd.TxPending,
			wantExists:     true,
			wantAccessible: true,
		},
		{
			name:       "status pending",
			gw:         &fakeGateway{status: map[string]*gateway.StatusInfo{"tx": {Found: true}}, missing: map[string]bool{"tx": true}},
			wantStatus: pd.TxPending,
			wantExists: true,
		},
		{
			name:       "unknown to both",
			gw:         &fakeGateway{},
			wantStatus: pd.TxFailed,
		},
		{
			name:       "both endpoints erroring stays pending",
			gw:         &fakeGateway{graphqlErr: netErr, statusErr: netErr},
			wantStatus: pd.TxPending,
		},
		{
			name:       "graphql error and status 404 stays pending",
			gw:         &fakeGateway{graphqlErr: netErr},
			wantStatus: pd.TxPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.gw, time.Second, 2, nil)
			got := s.VerifyTransaction(context.Background(), "tx")
			if got.Status != tt.wantStatus || got.Exists != tt.wantExists || got.Accessible != tt.wantAccessible || got.BlockHeight != tt.wantHeight {
				t.Errorf("VerifyTransaction() = %+v, want status=%s exists=%v accessible=%v height=%d",
					got, tt.wantStatus, tt.wantExists, tt.wantAccessible, tt.wantHeight)
			}
		})
	}
}

func manifestBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var uploaded []pd.UploadedFile
	for p, id := range files {
		uploaded = append(uploaded, pd.UploadedFile{Path: p, ContentID: id})
	}
	m, err := manifest.Build(uploaded, manifest.SiteMetadata{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	data, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return data
}

func TestVerifyDeployment(t *testing.T) {
	t.Parallel()

	files := map[string]string{"index.html": "id-index", "about.html": "id-about", "css/a.css": "id-css"}

	t.Run("all files reachable", func(t *testing.T) {
		gw := &fakeGateway{content: map[string][]byte{"m": manifestBytes(t, files)}}
		got := New(gw, time.Second, 2, nil).VerifyDeployment(context.Background(), "m")
		if !got.IsValid || !got.ManifestAccessible || got.VerifiedFiles != 3 || got.TotalFiles != 3 || len(got.Errors) != 0 {
			t.Errorf("VerifyDeployment() = %+v", got)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		gw := &fakeGateway{
			content: map[string][]byte{"m": manifestBytes(t, files)},
			missing: map[string]bool{"id-css": true},
		}
		got := New(gw, time.Second, 2, nil).VerifyDeployment(context.Background(), "m")
		if got.IsValid || got.VerifiedFiles != 2 || got.TotalFiles != 3 || len(got.Errors) != 1 {
			t.Errorf("VerifyDeployment() = %+v", got)
		}
	})

	t.Run("manifest 404", func(t *testing.T) {
		gw := &fakeGateway{}
		got := New(gw, time.Second, 2, nil).VerifyDeployment(context.Background(), "m")
		if got.IsValid || got.ManifestAccessible || got.VerifiedFiles != 0 {
			t.Errorf("VerifyDeployment() = %+v, want invalid with no verified files", got)
		}
		if len(gw.fetched) != 1 {
			t.Errorf("gateway calls = %v, want only the manifest fetch", gw.fetched)
		}
		if len(got.Errors) != 1 {
			t.Errorf("Errors = %v, want one", got.Errors)
		}
	})

	t.Run("not a manifest", func(t *testing.T) {
		gw := &fakeGateway{content: map[string][]byte{"m": []byte("<html></html>")}}
		got := New(gw, time.Second, 2, nil).VerifyDeployment(context.Background(), "m")
		if got.IsValid || !got.ManifestAccessible || got.TotalFiles != 0 {
			t.Errorf("VerifyDeployment() = %+v", got)
		}
	})

	t.Run("many files concurrently", func(t *testing.T) {
		many := map[string]string{"index.html": "id-index"}
		missing := map[string]bool{}
		for i := 0; i < 50; i++ {
			id := fmt.Sprintf("id-%02d", i)
			many[fmt.Sprintf("p%02d.html", i)] = id
			if i%10 == 0 {
				missing[id] = true
			}
		}
		gw := &fakeGateway{content: map[string][]byte{"m": manifestBytes(t, many)}, missing: missing}
		got := New(gw, time.Second, 4, nil).VerifyDeployment(context.Background(), "m")
		if got.TotalFiles != 51 || got.VerifiedFiles != 46 || len(got.Errors) != 5 {
			t.Errorf("VerifyDeployment() total=%d verified=%d errors=%d", got.TotalFiles, got.VerifiedFiles, len(got.Errors))
		}
	})
}

func TestAccessible(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{}
	s := New(gw, time.Second, 1, nil)
	err := s.accessible(context.Background(), "x")
	if err != nil {
		t.Fatalf("accessible() error = %v", err)
	}
	gw.missing = map[string]bool{"x": true}
	if err := s.accessible(context.Background(), "x"); !errors.Is(err, pd.ErrNotFound) {
		t.Errorf("accessible() error = %v, want ErrNotFound", err)
	}
}
