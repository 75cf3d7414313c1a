// Package remote expands source shorthands such as github:user/repo
// into clone URLs and rewrites the organisation's SSH URLs to HTTPS
// outside the development environment.
package remote

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/lorea/bootstrap/internal/fetch"
)

// Env selects how organisation URLs are rendered.
type Env string

// Environments.
const (
	EnvDevelopment Env = "development"
	EnvProduction  Env = "production"
)

// ParseEnv converts a configured value; empty means auto-detect.
func ParseEnv(s string) (Env, error) {
	switch Env(s) {
	case EnvDevelopment, EnvProduction, "":
		return Env(s), nil
	}
	return "", fmt.Errorf("unknown environment %q: want %q or %q", s, EnvDevelopment, EnvProduction)
}

// Resolver expands shorthands and rewrites URLs for one environment.
type Resolver struct {
	Env Env
	Org string

	orgSSH *regexp.Regexp
}

// NewResolver returns a Resolver for org in env.
func NewResolver(env Env, org string) *Resolver {
	return &Resolver{
		Env:    env,
		Org:    org,
		orgSSH: regexp.MustCompile(`^git@github\.com:` + regexp.QuoteMeta(org) + `/(.+)\.git$`),
	}
}

// GitHub returns the public HTTPS clone URL of user/repo.
func GitHub(user, repo string) string {
	return fmt.Sprintf("https://github.com/%s/%s.git", user, repo)
}

// Bitbucket returns the HTTPS URL of user/repo.
func Bitbucket(user, repo string) string {
	return fmt.Sprintf("https://bitbucket.org/%s/%s", user, repo)
}

// GitHubDev returns the SSH clone URL of an organisation repository.
func (r *Resolver) GitHubDev(repo string) string {
	return fmt.Sprintf("git@github.com:%s/%s.git", r.Org, repo)
}

// Expand turns a source declaration into a location. Recognised forms:
//
//	github:user/repo     https://github.com/user/repo.git
//	github-dev:repo      git@github.com:<org>/repo.git
//	bitbucket:user/repo  https://bitbucket.org/user/repo
//
// Anything else is returned unchanged. The result is passed through Rewrite.
func (r *Resolver) Expand(source string) (string, error) {
	scheme, rest, ok := strings.Cut(source, ":")
	if !ok {
		return r.Rewrite(source), nil
	}

	switch scheme {
	case "github", "bitbucket":
		user, repo, ok := strings.Cut(rest, "/")
		if !ok || user == "" || repo == "" {
			return "", fmt.Errorf("%s source %q: expected %s:<user>/<repo>", scheme, source, scheme)
		}
		if scheme == "github" {
			return r.Rewrite(GitHub(user, repo)), nil
		}
		return Bitbucket(user, repo), nil
	case "github-dev":
		if rest == "" || strings.Contains(rest, "/") {
			return "", fmt.Errorf("github-dev source %q: expected github-dev:<repo>", source)
		}
		return r.Rewrite(r.GitHubDev(rest)), nil
	}
	return r.Rewrite(source), nil
}

// Rewrite converts organisation SSH URLs to HTTPS unless the
// environment is development. Other URLs are returned unchanged.
func (r *Resolver) Rewrite(url string) string {
	if r.Env == EnvDevelopment {
		return url
	}
	m := r.orgSSH.FindStringSubmatch(url)
	if m == nil {
		return url
	}
	return GitHub(r.Org, m[1])
}

// DetectEnv reads remote.origin.url of the git checkout in dir and
// returns EnvDevelopment when it equals devOrigin. Any failure yields
// EnvProduction together with the origin that was read.
func DetectEnv(ctx context.Context, runner fetch.Runner, dir, devOrigin string) (Env, string) {
	out, err := runner.Run(ctx, dir, "git", "config", "remote.origin.url")
	if err != nil {
		return EnvProduction, ""
	}
	origin := strings.TrimSpace(string(out))
	if devOrigin != "" && origin == devOrigin {
		return EnvDevelopment, origin
	}
	return EnvProduction, origin
}
