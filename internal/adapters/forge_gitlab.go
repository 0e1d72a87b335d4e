package adapters

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/ports"
	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/shared"
	"github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/types"
)

// ForgeGitLabAdapter talks to one GitLab instance over REST v4.
type ForgeGitLabAdapter struct {
	BaseURL      string
	Token        string
	Timeout      time.Duration
	Retries      int
	RetryDelay   time.Duration
	PollInterval time.Duration
	client       *http.Client
}

const defaultGitlabTimeout = 60 * time.Second
const defaultGitlabRetries = 3
const defaultGitlabRetryDelay = 200 * time.Millisecond
const defaultGitlabPollInterval = time.Second
const maxGitlabRetryDelay = 2 * time.Second
const gitlabPerPage = 100

// NewForgeGitLabAdapter builds an adapter for one instance. certFile/keyFile
// configure mutual TLS and may be empty together; a half-configured pair is
// rejected.
func NewForgeGitLabAdapter(baseURL string, token string, certFile string, keyFile string, timeoutSec int, retries int, retryDelayMs int) (*ForgeGitLabAdapter, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("gitlab url is empty")
	}
	cert := strings.TrimSpace(certFile)
	key := strings.TrimSpace(keyFile)
	if (cert == "") != (key == "") {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("certificate and key must be provided together")
	}
	timeout := normalizeGitlabTimeout(timeoutSec)
	client := &http.Client{Timeout: timeout}
	if cert != "" {
		pair, err := tls.LoadX509KeyPair(cert, key)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to load client certificate").
				WithCause(err)
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{Certificates: []tls.Certificate{pair}}
		client.Transport = transport
	}
	return &ForgeGitLabAdapter{
		BaseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Token:        token,
		Timeout:      timeout,
		Retries:      normalizeGitlabRetries(retries),
		RetryDelay:   normalizeGitlabRetryDelay(retryDelayMs),
		PollInterval: defaultGitlabPollInterval,
		client:       client,
	}, nil
}

func (a *ForgeGitLabAdapter) ResolveGroup(ctx context.Context, idOrName string) (types.GroupInfo, error) {
	trimmed := strings.TrimSpace(idOrName)
	if trimmed == "" {
		return types.GroupInfo{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("group id or name is empty")
	}
	if id, err := strconv.Atoi(trimmed); err == nil {
		return a.getGroup(ctx, id)
	}
	log.Info().Str("group", trimmed).Msg("group is not numeric, resolving by name")

	var matches []types.GroupInfo
	err := a.listPages(ctx, "/api/v4/groups", nil, func(body []byte) error {
		var page []gitlabGroup
		if err := json.Unmarshal(body, &page); err != nil {
			return decodeError("group list", err)
		}
		for _, group := range page {
			if group.Name == trimmed {
				matches = append(matches, group.toInfo())
			}
		}
		return nil
	})
	if err != nil {
		return types.GroupInfo{}, err
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return types.GroupInfo{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("no group with name %q found", trimmed))
	default:
		return types.GroupInfo{}, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("found %d groups matching name %q, use the group id", len(matches), trimmed))
	}
}

func (a *ForgeGitLabAdapter) getGroup(ctx context.Context, id int) (types.GroupInfo, error) {
	body, err := a.getJSON(ctx, fmt.Sprintf("/api/v4/groups/%d", id), nil)
	if err != nil {
		return types.GroupInfo{}, err
	}
	var group gitlabGroup
	if err := json.Unmarshal(body, &group); err != nil {
		return types.GroupInfo{}, decodeError("group", err)
	}
	return group.toInfo(), nil
}

func (a *ForgeGitLabAdapter) ListGroupProjects(ctx context.Context, group types.GroupInfo, includeSubgroups bool) ([]types.ProjectInfo, error) {
	query := url.Values{}
	query.Set("include_subgroups", strconv.FormatBool(includeSubgroups))
	var projects []types.ProjectInfo
	err := a.listPages(ctx, fmt.Sprintf("/api/v4/groups/%d/projects", group.ID), query, func(body []byte) error {
		var page []gitlabProject
		if err := json.Unmarshal(body, &page); err != nil {
			return decodeError("project list", err)
		}
		for _, project := range page {
			projects = append(projects, project.toInfo())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (a *ForgeGitLabAdapter) ListItems(ctx context.Context, projectID int, itemType types.ItemType) ([]types.PruneItem, error) {
	var path string
	switch itemType {
	case types.ItemPipeline:
		path = fmt.Sprintf("/api/v4/projects/%d/pipelines", projectID)
	case types.ItemRelease:
		path = fmt.Sprintf("/api/v4/projects/%d/releases", projectID)
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid item type")
	}
	var items []types.PruneItem
	err := a.listPages(ctx, path, nil, func(body []byte) error {
		switch itemType {
		case types.ItemPipeline:
			var page []gitlabPipeline
			if err := json.Unmarshal(body, &page); err != nil {
				return decodeError("pipeline list", err)
			}
			for _, pipeline := range page {
				items = append(items, types.PruneItem{
					ID:        strconv.Itoa(pipeline.ID),
					Ref:       pipeline.Ref,
					CreatedAt: pipeline.CreatedAt,
				})
			}
		case types.ItemRelease:
			var page []gitlabRelease
			if err := json.Unmarshal(body, &page); err != nil {
				return decodeError("release list", err)
			}
			for _, release := range page {
				items = append(items, types.PruneItem{
					ID:        release.TagName,
					TagName:   release.TagName,
					CreatedAt: release.CreatedAt,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (a *ForgeGitLabAdapter) ListBranches(ctx context.Context, projectID int) ([]types.BranchInfo, error) {
	var branches []types.BranchInfo
	err := a.listPages(ctx, fmt.Sprintf("/api/v4/projects/%d/repository/branches", projectID), nil, func(body []byte) error {
		var page []gitlabBranch
		if err := json.Unmarshal(body, &page); err != nil {
			return decodeError("branch list", err)
		}
		for _, branch := range page {
			branches = append(branches, types.BranchInfo{Name: branch.Name, Protected: branch.Protected})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return branches, nil
}

func (a *ForgeGitLabAdapter) DeleteItem(ctx context.Context, projectID int, itemType types.ItemType, item types.PruneItem) error {
	var path string
	switch itemType {
	case types.ItemPipeline:
		path = fmt.Sprintf("/api/v4/projects/%d/pipelines/%s", projectID, url.PathEscape(item.ID))
	case types.ItemRelease:
		path = fmt.Sprintf("/api/v4/projects/%d/releases/%s", projectID, url.PathEscape(item.TagName))
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid item type")
	}
	return a.delete(ctx, path)
}

func (a *ForgeGitLabAdapter) DeleteBranch(ctx context.Context, projectID int, name string) error {
	if strings.TrimSpace(name) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("branch name is empty")
	}
	return a.delete(ctx, fmt.Sprintf("/api/v4/projects/%d/repository/branches/%s", projectID, url.PathEscape(name)))
}

func (a *ForgeGitLabAdapter) ExportProject(ctx context.Context, projectID int, w io.Writer) error {
	exportPath := fmt.Sprintf("/api/v4/projects/%d/export", projectID)
	if _, err := a.do(ctx, http.MethodPost, exportPath, nil, "", nil); err != nil {
		return err
	}
	for {
		body, err := a.getJSON(ctx, exportPath, nil)
		if err != nil {
			return err
		}
		var status gitlabExportStatus
		if err := json.Unmarshal(body, &status); err != nil {
			return decodeError("export status", err)
		}
		if status.ExportStatus == "finished" {
			break
		}
		log.Debug().Str("status", status.ExportStatus).Msg("export ongoing")
		if err := sleepContext(ctx, a.PollInterval); err != nil {
			return err
		}
	}
	return a.download(ctx, exportPath+"/download", w)
}

func (a *ForgeGitLabAdapter) ImportProject(ctx context.Context, groupPath string, path string, name string, r io.Reader) (types.ProjectInfo, error) {
	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)
	part, err := writer.CreateFormFile("file", path+".tgz")
	if err != nil {
		return types.ProjectInfo{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to build import form").
			WithCause(err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return types.ProjectInfo{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to buffer export archive").
			WithCause(err)
	}
	fields := map[string]string{"namespace": groupPath, "path": path, "name": name}
	for field, value := range fields {
		if err := writer.WriteField(field, value); err != nil {
			return types.ProjectInfo{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to build import form").
				WithCause(err)
		}
	}
	if err := writer.Close(); err != nil {
		return types.ProjectInfo{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to build import form").
			WithCause(err)
	}

	body, err := a.do(ctx, http.MethodPost, "/api/v4/projects/import", nil, writer.FormDataContentType(), &buffer)
	if err != nil {
		return types.ProjectInfo{}, err
	}
	var created gitlabProject
	if err := json.Unmarshal(body, &created); err != nil {
		return types.ProjectInfo{}, decodeError("import response", err)
	}

	statusPath := fmt.Sprintf("/api/v4/projects/%d/import", created.ID)
	for {
		statusBody, err := a.getJSON(ctx, statusPath, nil)
		if err != nil {
			return types.ProjectInfo{}, err
		}
		var status gitlabImportStatus
		if err := json.Unmarshal(statusBody, &status); err != nil {
			return types.ProjectInfo{}, decodeError("import status", err)
		}
		if status.ImportStatus == "failed" {
			return types.ProjectInfo{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("project import failed").
				WithCause(fmt.Errorf("import_error=%s", status.ImportError))
		}
		if status.ImportStatus == "finished" {
			break
		}
		log.Debug().Str("status", status.ImportStatus).Msg("import ongoing")
		if err := sleepContext(ctx, a.PollInterval); err != nil {
			return types.ProjectInfo{}, err
		}
	}
	return created.toInfo(), nil
}

func (a *ForgeGitLabAdapter) ListVariables(ctx context.Context, projectID int) ([]types.VariableInfo, error) {
	var variables []types.VariableInfo
	err := a.listPages(ctx, fmt.Sprintf("/api/v4/projects/%d/variables", projectID), nil, func(body []byte) error {
		var page []gitlabVariable
		if err := json.Unmarshal(body, &page); err != nil {
			return decodeError("variable list", err)
		}
		for _, variable := range page {
			variables = append(variables, variable.toInfo())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return variables, nil
}

func (a *ForgeGitLabAdapter) CreateVariable(ctx context.Context, projectID int, variable types.VariableInfo) error {
	payload, err := json.Marshal(gitlabVariableFrom(variable))
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode variable").
			WithCause(err)
	}
	_, err = a.do(ctx, http.MethodPost, fmt.Sprintf("/api/v4/projects/%d/variables", projectID), nil, "application/json", bytes.NewReader(payload))
	return err
}

// listPages follows X-Next-Page until the listing is exhausted and hands
// each raw page body to handle.
func (a *ForgeGitLabAdapter) listPages(ctx context.Context, path string, query url.Values, handle func(body []byte) error) error {
	page := "1"
	for page != "" {
		values := url.Values{}
		for key, value := range query {
			values[key] = value
		}
		values.Set("per_page", strconv.Itoa(gitlabPerPage))
		values.Set("page", page)
		body, next, err := a.getPage(ctx, path, values)
		if err != nil {
			return err
		}
		if err := handle(body); err != nil {
			return err
		}
		page = next
	}
	return nil
}

func (a *ForgeGitLabAdapter) getJSON(ctx context.Context, path string, query url.Values) ([]byte, error) {
	body, _, err := a.getPage(ctx, path, query)
	return body, err
}

func (a *ForgeGitLabAdapter) getPage(ctx context.Context, path string, query url.Values) ([]byte, string, error) {
	requestURL := a.BaseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}
	var lastErr error
	for attempt := 0; attempt < a.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		body, next, retry, err := a.getPageOnce(ctx, requestURL)
		if err == nil {
			return body, next, nil
		}
		lastErr = err
		if !retry || attempt == a.Retries-1 {
			return nil, "", err
		}
		time.Sleep(a.retryDelay(attempt))
	}
	return nil, "", lastErr
}

func (a *ForgeGitLabAdapter) getPageOnce(ctx context.Context, requestURL string) ([]byte, string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, "", false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create gitlab request").
			WithCause(err)
	}
	a.applyAuth(req)
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, "", true, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("gitlab request failed").
			WithCause(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, resp.Header.Get("X-Next-Page"), false, nil
	}
	retry := resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
	return nil, "", retry, statusError(resp.StatusCode, requestURL, body)
}

func (a *ForgeGitLabAdapter) delete(ctx context.Context, path string) error {
	requestURL := a.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, requestURL, nil)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create gitlab delete request").
			WithCause(err)
	}
	a.applyAuth(req)
	resp, err := a.client.Do(req)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("gitlab delete failed").
			WithCause(err)
	}
	defer resp.Body.Close()
	// Deleting an already-deleted item is a success: deletions are
	// independently idempotent.
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	return statusError(resp.StatusCode, requestURL, body)
}

func (a *ForgeGitLabAdapter) do(ctx context.Context, method string, path string, query url.Values, contentType string, payload io.Reader) ([]byte, error) {
	requestURL := a.BaseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, requestURL, payload)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create gitlab request").
			WithCause(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	a.applyAuth(req)
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("gitlab request failed").
			WithCause(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, requestURL, body)
	}
	return body, nil
}

func (a *ForgeGitLabAdapter) download(ctx context.Context, path string, w io.Writer) error {
	requestURL := a.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create gitlab download request").
			WithCause(err)
	}
	a.applyAuth(req)
	resp, err := a.client.Do(req)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("gitlab download failed").
			WithCause(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return statusError(resp.StatusCode, requestURL, body)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to stream export archive").
			WithCause(err)
	}
	return nil
}

func (a *ForgeGitLabAdapter) applyAuth(req *http.Request) {
	if strings.TrimSpace(a.Token) != "" {
		req.Header.Set("PRIVATE-TOKEN", a.Token)
	}
}

func (a *ForgeGitLabAdapter) retryDelay(attempt int) time.Duration {
	delay := a.RetryDelay * time.Duration(1<<attempt)
	if delay > maxGitlabRetryDelay {
		delay = maxGitlabRetryDelay
	}
	jitter := time.Duration(time.Now().UnixNano() % int64(delay/2+1))
	return delay + jitter
}

func statusError(status int, requestURL string, body []byte) error {
	code := errbuilder.CodeInternal
	switch status {
	case http.StatusNotFound:
		code = errbuilder.CodeNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		code = errbuilder.CodePermissionDenied
	}
	return errbuilder.New().
		WithCode(code).
		WithMsg("gitlab request rejected").
		WithCause(shared.HTTPStatusErrorWithBody(status, requestURL, strings.TrimSpace(string(body))))
}

func decodeError(what string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("failed to parse gitlab " + what).
		WithCause(err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func normalizeGitlabTimeout(value int) time.Duration {
	timeout := time.Duration(value) * time.Second
	if timeout <= 0 {
		return defaultGitlabTimeout
	}
	return timeout
}

func normalizeGitlabRetries(value int) int {
	if value <= 0 {
		return defaultGitlabRetries
	}
	return value
}

func normalizeGitlabRetryDelay(value int) time.Duration {
	delay := time.Duration(value) * time.Millisecond
	if delay <= 0 {
		return defaultGitlabRetryDelay
	}
	return delay
}

type gitlabGroup struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	FullPath string `json:"full_path"`
}

func (g gitlabGroup) toInfo() types.GroupInfo {
	return types.GroupInfo{ID: g.ID, Name: g.Name, FullPath: g.FullPath}
}

type gitlabProject struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Archived bool   `json:"archived"`
}

func (p gitlabProject) toInfo() types.ProjectInfo {
	return types.ProjectInfo{ID: p.ID, Name: p.Name, Path: p.Path, Archived: p.Archived}
}

type gitlabPipeline struct {
	ID        int    `json:"id"`
	Ref       string `json:"ref"`
	CreatedAt string `json:"created_at"`
}

type gitlabRelease struct {
	TagName   string `json:"tag_name"`
	CreatedAt string `json:"created_at"`
}

type gitlabBranch struct {
	Name      string `json:"name"`
	Protected bool   `json:"protected"`
}

type gitlabExportStatus struct {
	ExportStatus string `json:"export_status"`
}

type gitlabImportStatus struct {
	ImportStatus string `json:"import_status"`
	ImportError  string `json:"import_error"`
}

type gitlabVariable struct {
	Key          string `json:"key"`
	Value        string `json:"value"`
	VariableType string `json:"variable_type,omitempty"`
	Protected    bool   `json:"protected"`
	Masked       bool   `json:"masked"`
	Environment  string `json:"environment_scope,omitempty"`
}

func (v gitlabVariable) toInfo() types.VariableInfo {
	return types.VariableInfo{
		Key:          v.Key,
		Value:        v.Value,
		VariableType: v.VariableType,
		Protected:    v.Protected,
		Masked:       v.Masked,
		Environment:  v.Environment,
	}
}

func gitlabVariableFrom(v types.VariableInfo) gitlabVariable {
	return gitlabVariable{
		Key:          v.Key,
		Value:        v.Value,
		VariableType: v.VariableType,
		Protected:    v.Protected,
		Masked:       v.Masked,
		Environment:  v.Environment,
	}
}

var _ ports.ForgePort = (*ForgeGitLabAdapter)(nil)
