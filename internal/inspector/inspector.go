// Package inspector queries the local container runtime for images and containers.
package inspector

import (
	"context"
	"strings"
)

// ImageRecord describes one image reported by the runtime.
type ImageRecord struct {
	ID         string
	Repository string
	Tag        string
	Size       string

	// Fields holds every key the runtime reported, as strings.
	Fields map[string]string
}

// Ref returns the image as "repository:tag".
func (r ImageRecord) Ref() string {
	if r.Tag == "" {
		return r.Repository
	}
	return r.Repository + ":" + r.Tag
}

// ContainerRecord describes one container reported by the runtime.
type ContainerRecord struct {
	ID     string
	Image  string
	Names  string
	Ports  string
	State  string
	Status string

	// Fields holds every key the runtime reported, as strings.
	Fields map[string]string
}

// Inspector lists the runtime's images and containers. Results are never
// cached; every call queries the runtime again.
type Inspector interface {
	ListImages(ctx context.Context) ([]ImageRecord, error)

	// ListContainers returns running containers, or all containers when all is true.
	ListContainers(ctx context.Context, all bool) ([]ContainerRecord, error)
}

// ImageExists reports whether any image's "repository:tag" starts with ref.
func ImageExists(images []ImageRecord, ref string) bool {
	for _, img := range images {
		if strings.HasPrefix(img.Ref(), ref) {
			return true
		}
	}
	return false
}

// HasImage reports whether an image with exactly this repository and tag exists.
func HasImage(images []ImageRecord, repository, tag string) bool {
	for _, img := range images {
		if img.Repository == repository && img.Tag == tag {
			return true
		}
	}
	return false
}

// FindContainerByImage returns the first container whose Image equals image.
func FindContainerByImage(containers []ContainerRecord, image string) *ContainerRecord {
	for i := range containers {
		if containers[i].Image == image {
			return &containers[i]
		}
	}
	return nil
}

func splitRepoTag(repoTag string) (string, string, bool) {
	if repoTag == "" || repoTag == "<none>:<none>" {
		return "", "", false
	}

	idx := strings.LastIndex(repoTag, ":")
	if idx <= 0 || idx >= len(repoTag)-1 {
		return "", "", false
	}
	// a colon inside the registry host, not a tag separator
	if strings.Contains(repoTag[idx+1:], "/") {
		return "", "", false
	}

	return repoTag[:idx], repoTag[idx+1:], true
}
