package inspector

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-units"
	"github.com/rs/zerolog/log"
)

// dockerAPI is the subset of the Engine API client used by SDK.
type dockerAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	ServerVersion(ctx context.Context) (types.Version, error)
	ImageList(ctx context.Context, options image.ListOptions) ([]image.Summary, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	Close() error
}

// SDK inspects the runtime through the Docker Engine API.
type SDK struct {
	client dockerAPI
	dial   func() (dockerAPI, error)
}

// NewSDK creates an SDK inspector. The client connects lazily on first use.
func NewSDK() *SDK {
	return &SDK{dial: dialDocker}
}

func dialDocker() (dockerAPI, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	return cli, nil
}

// initClient initializes the Docker client (lazy initialization).
func (s *SDK) initClient(ctx context.Context) error {
	if s.client != nil {
		return nil
	}

	cli, err := s.dial()
	if err != nil {
		return fmt.Errorf("failed to create Docker client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if _, err := cli.Ping(pingCtx); err != nil {
		_ = cli.Close()
		if client.IsErrConnectionFailed(err) {
			return fmt.Errorf("Docker daemon is not running or unreachable. %s", dockerStartHint(runtime.GOOS))
		}
		return fmt.Errorf("Docker daemon health check failed: %w", err)
	}

	s.client = cli
	return nil
}

func dockerStartHint(goos string) string {
	switch goos {
	case "darwin", "windows":
		return "Start Docker Desktop and retry."
	default:
		return "Start Docker and retry (for example: 'systemctl start docker')."
	}
}

// ServerVersion returns the daemon's version string.
func (s *SDK) ServerVersion(ctx context.Context) (string, error) {
	if err := s.initClient(ctx); err != nil {
		return "", err
	}

	v, err := s.client.ServerVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to query server version: %w", err)
	}
	return v.Version, nil
}

// ListImages returns one record per repository tag, like "docker images".
func (s *SDK) ListImages(ctx context.Context) ([]ImageRecord, error) {
	if err := s.initClient(ctx); err != nil {
		return nil, err
	}

	summaries, err := s.client.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	var images []ImageRecord
	for _, summary := range summaries {
		images = append(images, imageRecords(summary)...)
	}
	log.Debug().Int("images", len(images)).Msg("Listed images through Engine API")
	return images, nil
}

// ListContainers returns running containers, or all of them when all is set.
func (s *SDK) ListContainers(ctx context.Context, all bool) ([]ContainerRecord, error) {
	if err := s.initClient(ctx); err != nil {
		return nil, err
	}

	summaries, err := s.client.ContainerList(ctx, container.ListOptions{All: all})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	containers := make([]ContainerRecord, 0, len(summaries))
	for _, summary := range summaries {
		containers = append(containers, containerRecord(summary))
	}
	log.Debug().Int("containers", len(containers)).Bool("all", all).Msg("Listed containers through Engine API")
	return containers, nil
}

// Close closes the Docker client connection.
func (s *SDK) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func imageRecords(summary image.Summary) []ImageRecord {
	id := shortID(summary.ID)
	size := units.HumanSizeWithPrecision(float64(summary.Size), 3)

	repoTags := summary.RepoTags
	if len(repoTags) == 0 {
		repoTags = []string{"<none>:<none>"}
	}

	records := make([]ImageRecord, 0, len(repoTags))
	for _, repoTag := range repoTags {
		repo, tag, ok := splitRepoTag(repoTag)
		if !ok {
			repo, tag = "<none>", "<none>"
		}
		records = append(records, ImageRecord{
			ID:         id,
			Repository: repo,
			Tag:        tag,
			Size:       size,
			Fields: map[string]string{
				"ID":         id,
				"Repository": repo,
				"Tag":        tag,
				"Size":       size,
			},
		})
	}
	return records
}

func containerRecord(summary container.Summary) ContainerRecord {
	names := make([]string, 0, len(summary.Names))
	for _, name := range summary.Names {
		names = append(names, strings.TrimPrefix(name, "/"))
	}

	ports := make([]string, 0, len(summary.Ports))
	for _, p := range summary.Ports {
		ports = append(ports, formatPort(p.IP, p.PublicPort, p.PrivatePort, p.Type))
	}

	rec := ContainerRecord{
		ID:     shortID(summary.ID),
		Image:  summary.Image,
		Names:  strings.Join(names, ","),
		Ports:  strings.Join(ports, ", "),
		State:  summary.State,
		Status: summary.Status,
	}
	rec.Fields = map[string]string{
		"ID":     rec.ID,
		"Image":  rec.Image,
		"Names":  rec.Names,
		"Ports":  rec.Ports,
		"State":  rec.State,
		"Status": rec.Status,
	}
	return rec
}

// formatPort renders a port binding the way the docker CLI prints it.
func formatPort(ip string, public, private uint16, proto string) string {
	if public == 0 {
		return fmt.Sprintf("%d/%s", private, proto)
	}
	if strings.Contains(ip, ":") {
		ip = "[" + ip + "]"
	}
	return fmt.Sprintf("%s:%d->%d/%s", ip, public, private, proto)
}

func shortID(id string) string {
	id = strings.TrimPrefix(id, "sha256:")
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
