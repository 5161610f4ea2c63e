package github

import (
	"context"
	"crypto/sha1" // #nosec G505 -- git object ids are SHA-1
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/interfaces"
	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

// Mirror keeps ledger documents as files on a GitHub branch. The version
// token is the git blob id of the file; a write is a commit created with the
// head commit it was based on, so concurrent writers are detected twice: by
// the blob id and by the branch head.
type Mirror struct {
	gql      *githubv4.Client
	repo     Repository
	headline string
}

var _ interfaces.Mirror = &Mirror{}

type Option func(*mirrorOptions)

type mirrorOptions struct {
	endpoint string
	headline string
}

// WithEndpoint targets a GitHub Enterprise (or test) GraphQL endpoint
func WithEndpoint(url string) Option {
	return func(o *mirrorOptions) {
		o.endpoint = url
	}
}

// WithCommitHeadline sets the headline of mirror commits
func WithCommitHeadline(headline string) Option {
	return func(o *mirrorOptions) {
		o.headline = headline
	}
}

// New creates a Mirror on top of an authenticated HTTP client
func New(httpClient *http.Client, repo Repository, opts ...Option) (*Mirror, error) {
	if repo.Owner == "" || repo.Name == "" || repo.Branch == "" {
		return nil, goerr.New("repository owner, name and branch are required",
			goerr.V("owner", repo.Owner),
			goerr.V("name", repo.Name),
			goerr.V("branch", repo.Branch))
	}

	o := &mirrorOptions{headline: "Update ledger"}
	for _, opt := range opts {
		opt(o)
	}

	gql := githubv4.NewClient(httpClient)
	if o.endpoint != "" {
		gql = githubv4.NewEnterpriseClient(o.endpoint, httpClient)
	}

	return &Mirror{gql: gql, repo: repo, headline: o.headline}, nil
}

// NewAppHTTPClient returns an HTTP client authenticated as a GitHub App
// installation. privateKey can be a PEM string or a file path to a PEM file.
func NewAppHTTPClient(appID, installationID int64, privateKey string) (*http.Client, error) {
	var key []byte

	// #nosec G304 -- path comes from CLI flag, not user input
	if data, err := os.ReadFile(privateKey); err == nil {
		key = data
	} else {
		key = []byte(privateKey)
	}

	tr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitHub App transport",
			goerr.V("appID", appID),
			goerr.V("installationID", installationID))
	}

	return &http.Client{Transport: tr}, nil
}

// NewTokenHTTPClient returns an HTTP client authenticated with a personal or
// fine-grained access token
func NewTokenHTTPClient(ctx context.Context, token string) *http.Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return oauth2.NewClient(ctx, src)
}

// BlobOID computes the git blob object id of content
func BlobOID(content []byte) model.Version {
	h := sha1.New() // #nosec G401
	_, _ = h.Write([]byte("blob " + strconv.Itoa(len(content)) + "\x00"))
	_, _ = h.Write(content)
	return model.Version(hex.EncodeToString(h.Sum(nil)))
}

type fileState struct {
	head    githubv4.GitObjectID
	blob    githubv4.GitObjectID
	content []byte
	exists  bool
}

func (m *Mirror) query(ctx context.Context, path string) (*fileState, error) {
	var q fileQuery
	variables := map[string]interface{}{
		"owner":      githubv4.String(m.repo.Owner),
		"name":       githubv4.String(m.repo.Name),
		"ref":        githubv4.String("refs/heads/" + m.repo.Branch),
		"expression": githubv4.String(m.repo.Branch + ":" + path),
	}

	if err := m.gql.Query(ctx, &q, variables); err != nil {
		return nil, goerr.Wrap(err, "failed to query mirror file",
			goerr.V("repository", m.repo.NameWithOwner()),
			goerr.V(model.PathKey, path))
	}

	state := &fileState{
		head: q.Repository.Ref.Target.Oid,
		blob: q.Repository.Object.Blob.Oid,
	}
	if state.head == "" {
		return nil, goerr.New("mirror branch not found",
			goerr.V("repository", m.repo.NameWithOwner()),
			goerr.V("branch", m.repo.Branch))
	}
	if state.blob != "" {
		state.exists = true
		if q.Repository.Object.Blob.Text != nil {
			state.content = []byte(*q.Repository.Object.Blob.Text)
		}
	}
	return state, nil
}

func (m *Mirror) Fetch(ctx context.Context, path string) (*model.RemoteObject, error) {
	state, err := m.query(ctx, path)
	if err != nil {
		return nil, err
	}
	if !state.exists {
		return nil, nil
	}

	version := model.Version(state.blob)
	if BlobOID(state.content) != version {
		return nil, goerr.New("mirror file content is binary or truncated",
			goerr.V("repository", m.repo.NameWithOwner()),
			goerr.V(model.PathKey, path),
			goerr.V(model.ActualKey, version))
	}

	return &model.RemoteObject{
		Path:    path,
		Content: state.content,
		Version: version,
	}, nil
}

func (m *Mirror) Put(ctx context.Context, path string, content []byte, expected model.Version) (model.Version, error) {
	state, err := m.query(ctx, path)
	if err != nil {
		return "", err
	}

	current := model.Version(state.blob)
	if current != expected {
		return "", goerr.Wrap(model.ErrSyncConflict, "mirror file changed",
			goerr.V("repository", m.repo.NameWithOwner()),
			goerr.V(model.PathKey, path),
			goerr.V(model.ExpectedKey, expected),
			goerr.V(model.ActualKey, current))
	}

	input := githubv4.CreateCommitOnBranchInput{
		Branch: githubv4.CommittableBranch{
			RepositoryNameWithOwner: githubv4.NewString(githubv4.String(m.repo.NameWithOwner())),
			BranchName:              githubv4.NewString(githubv4.String(m.repo.Branch)),
		},
		Message: githubv4.CommitMessage{
			Headline: githubv4.String(m.headline),
		},
		ExpectedHeadOid: state.head,
		FileChanges: &githubv4.FileChanges{
			Additions: &[]githubv4.FileAddition{
				{
					Path:     githubv4.String(path),
					Contents: githubv4.Base64String(base64.StdEncoding.EncodeToString(content)),
				},
			},
		},
	}

	var mut createCommitMutation
	if err := m.gql.Mutate(ctx, &mut, input, nil); err != nil {
		if IsHeadMoved(err) {
			return "", goerr.Wrap(model.ErrSyncConflict, "mirror branch moved",
				goerr.V("repository", m.repo.NameWithOwner()),
				goerr.V(model.PathKey, path),
				goerr.V("expected_head", state.head),
				goerr.V("cause", err.Error()))
		}
		return "", goerr.Wrap(err, "failed to commit mirror file",
			goerr.V("repository", m.repo.NameWithOwner()),
			goerr.V(model.PathKey, path))
	}

	return BlobOID(content), nil
}

// IsHeadMoved reports whether a createCommitOnBranch error was caused by a
// stale expected head
func IsHeadMoved(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Expected branch to point to") ||
		strings.Contains(msg, "expectedHeadOid")
}
