//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/adapters"
	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/app"
	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/types"
)

type recordedRequest struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Token  string `json:"token"`
}

// TestE2EPruneWithTestcontainers runs a full prune against a scripted GitLab
// API mock: one group, one project with two branches, four pipelines and two
// releases. With keep-latest 1 the run must sweep the dev pipelines, the dev
// branch, every pipeline but the newest, and the older release.
func TestE2EPruneWithTestcontainers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers e2e in short mode")
	}

	ctx := t.Context()
	endpoint, cleanup := startGitlabMock(ctx, t)
	t.Cleanup(cleanup)

	origin, err := adapters.NewForgeGitLabAdapter(endpoint, "itest-token", "", "", 10, 1, 100)
	require.NoError(t, err)

	retain := 1
	policy, err := types.NewRetentionPolicy(types.RetentionConfig{RetainCount: &retain})
	require.NoError(t, err)

	service := app.NewService(origin, nil, nil)
	result, err := service.PruneGroup(ctx, app.PruneGroupRequest{
		Group:  "1",
		Policy: policy,
	})
	require.NoError(t, err)
	require.Len(t, result.Projects, 1)

	summary := result.Projects[0]
	assert.Equal(t, types.OutcomePruned, summary.Outcome)
	assert.Equal(t, 2, summary.BranchPipelines)
	assert.Equal(t, 1, summary.BranchesDeleted)
	assert.Equal(t, 3, summary.PolicyPipelines)
	assert.Equal(t, 1, summary.ReleasesDeleted)

	requests, err := fetchRecordedRequests(endpoint)
	require.NoError(t, err)

	counts := map[string]int{}
	for _, req := range requests {
		if req.Method != "DELETE" {
			continue
		}
		require.Equal(t, "itest-token", req.Token)
		counts[req.Path]++
	}
	// Pipelines 2 and 3 are hit by both the branch sweep and the retention
	// pass; the second delete is a tolerated 404.
	assert.Equal(t, 1, counts["/api/v4/projects/11/pipelines/1"])
	assert.Equal(t, 2, counts["/api/v4/projects/11/pipelines/2"])
	assert.Equal(t, 2, counts["/api/v4/projects/11/pipelines/3"])
	assert.Zero(t, counts["/api/v4/projects/11/pipelines/4"])
	assert.Equal(t, 1, counts["/api/v4/projects/11/repository/branches/dev"])
	assert.Equal(t, 1, counts["/api/v4/projects/11/releases/v1"])
	assert.Zero(t, counts["/api/v4/projects/11/releases/v2"])
}

func startGitlabMock(ctx context.Context, t *testing.T) (string, func()) {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "python:3.12-alpine",
		ExposedPorts: []string{"8080/tcp"},
		Cmd:          []string{"python", "-c", gitlabMockScript},
		WaitingFor:   wait.ForListeningPort("8080/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8080/tcp")
	require.NoError(t, err)

	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())
	cleanup := func() {
		_ = container.Terminate(ctx)
	}
	return endpoint, cleanup
}

func fetchRecordedRequests(endpoint string) ([]recordedRequest, error) {
	resp, err := http.Get(endpoint + "/requests")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	var requests []recordedRequest
	if err := json.NewDecoder(resp.Body).Decode(&requests); err != nil {
		return nil, err
	}
	return requests, nil
}

const gitlabMockScript = `
import json
from http.server import BaseHTTPRequestHandler, ThreadingHTTPServer

requests = []
deleted = set()

GROUP = {"id": 1, "name": "platform", "full_path": "org/platform"}
PROJECTS = [{"id": 11, "name": "svc", "path": "svc", "archived": False}]
BRANCHES = [{"name": "main", "protected": True}, {"name": "dev", "protected": False}]
PIPELINES = [
    {"id": 1, "ref": "main", "created_at": "2026-03-01T10:00:00.000Z"},
    {"id": 2, "ref": "dev", "created_at": "2026-03-02T10:00:00.000Z"},
    {"id": 3, "ref": "dev", "created_at": "2026-03-09T10:00:00.000Z"},
    {"id": 4, "ref": "main", "created_at": "2026-03-10T10:00:00.000Z"},
]
RELEASES = [
    {"tag_name": "v1", "created_at": "2026-03-01T10:00:00.000Z"},
    {"tag_name": "v2", "created_at": "2026-03-05T10:00:00.000Z"},
]

class Handler(BaseHTTPRequestHandler):
    def reply_json(self, payload):
        self.send_response(200)
        self.send_header("Content-Type", "application/json")
        self.end_headers()
        self.wfile.write(json.dumps(payload).encode("utf-8"))

    def do_GET(self):
        path = self.path.split("?", 1)[0]
        if path == "/requests":
            self.reply_json(requests)
            return
        if path == "/api/v4/groups/1":
            self.reply_json(GROUP)
            return
        if path == "/api/v4/groups/1/projects":
            self.reply_json(PROJECTS)
            return
        if path == "/api/v4/projects/11/repository/branches":
            self.reply_json(BRANCHES)
            return
        if path == "/api/v4/projects/11/pipelines":
            self.reply_json(PIPELINES)
            return
        if path == "/api/v4/projects/11/releases":
            self.reply_json(RELEASES)
            return
        self.send_response(404)
        self.end_headers()

    def do_DELETE(self):
        requests.append(
            {
                "method": "DELETE",
                "path": self.path,
                "token": self.headers.get("PRIVATE-TOKEN", ""),
            }
        )
        if self.path in deleted:
            self.send_response(404)
            self.end_headers()
            return
        deleted.add(self.path)
        self.send_response(204)
        self.end_headers()

    def log_message(self, format, *args):
        return

def main():
    server = ThreadingHTTPServer(("0.0.0.0", 8080), Handler)
    server.serve_forever()

if __name__ == "__main__":
    main()
`
