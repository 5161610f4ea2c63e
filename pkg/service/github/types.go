package github

import "github.com/shurcooL/githubv4"

// Repository addresses the branch holding mirrored ledger documents
type Repository struct {
	Owner  string
	Name   string
	Branch string
}

// NameWithOwner returns "owner/name"
func (r Repository) NameWithOwner() string {
	return r.Owner + "/" + r.Name
}

// GraphQL query types

type fileQuery struct {
	Repository struct {
		Ref struct {
			Target struct {
				Oid githubv4.GitObjectID
			}
		} `graphql:"ref(qualifiedName: $ref)"`
		Object struct {
			Blob struct {
				Oid  githubv4.GitObjectID
				Text *githubv4.String
			} `graphql:"... on Blob"`
		} `graphql:"object(expression: $expression)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

type createCommitMutation struct {
	CreateCommitOnBranch struct {
		Commit struct {
			Oid githubv4.GitObjectID
			URL githubv4.URI
		}
	} `graphql:"createCommitOnBranch(input: $input)"`
}
