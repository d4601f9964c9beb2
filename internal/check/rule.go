// Package check evaluates grading rules against a Dockerfile and the live
// container runtime.
package check

import (
	"fmt"
	"strings"
)

// Kind selects which predicate a Rule runs.
type Kind string

const (
	KindBaseImages           Kind = "base-images"
	KindMultiStage           Kind = "multi-stage"
	KindRequiredInstructions Kind = "required-instructions"
	KindFileTransfer         Kind = "file-transfer"
	KindExactLine            Kind = "exact-line"
	KindImageExists          Kind = "image-exists"
	KindBaseImagesPresent    Kind = "base-images-present"
	KindContainerRunning     Kind = "container-running"
	KindHTTPEndpoint         Kind = "http-endpoint"
	KindContainerStopped     Kind = "container-stopped"
	KindContainerDeleted     Kind = "container-deleted"
	KindImageDeleted         Kind = "image-deleted"
)

// Kinds lists every supported rule kind.
var Kinds = []Kind{
	KindBaseImages,
	KindMultiStage,
	KindRequiredInstructions,
	KindFileTransfer,
	KindExactLine,
	KindImageExists,
	KindBaseImagesPresent,
	KindContainerRunning,
	KindHTTPEndpoint,
	KindContainerStopped,
	KindContainerDeleted,
	KindImageDeleted,
}

// DefaultAllowedBaseImages are the JVM base images accepted by base-images rules.
var DefaultAllowedBaseImages = []string{"eclipse-temurin", "amazoncorretto", "openjdk"}

// NeedsDockerfile reports whether rules of this kind read the learner's Dockerfile.
func (k Kind) NeedsDockerfile() bool {
	switch k {
	case KindBaseImages, KindMultiStage, KindRequiredInstructions, KindFileTransfer,
		KindExactLine, KindBaseImagesPresent:
		return true
	}
	return false
}

func (k Kind) known() bool {
	for _, kind := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Rule is one pass/fail judgment. Only the fields relevant to Kind are read.
type Rule struct {
	Name string `yaml:"name"`
	Kind Kind   `yaml:"kind"`

	// Keywords are the instructions a required-instructions rule looks for.
	Keywords []string `yaml:"keywords,omitempty"`

	// AllowedPrefixes restrict base image repositories. Empty means DefaultAllowedBaseImages.
	AllowedPrefixes []string `yaml:"allowed_prefixes,omitempty"`

	// MinFrom is the minimum number of FROM lines for multi-stage (default 2).
	MinFrom int `yaml:"min_from,omitempty"`

	RequireStageName    bool `yaml:"require_stage_name,omitempty"`
	RequireDockerignore bool `yaml:"require_dockerignore,omitempty"`

	// MinTransfer and MinRun tighten file-transfer: combined COPY/ADD lines and RUN lines.
	MinTransfer int `yaml:"min_transfer,omitempty"`
	MinRun      int `yaml:"min_run,omitempty"`

	// Line is the literal an exact-line rule expects.
	Line string `yaml:"line,omitempty"`

	// Image is a "repository:tag" reference for image-exists, or the
	// repository a container was created from for container rules.
	Image string `yaml:"image,omitempty"`
	Tag   string `yaml:"tag,omitempty"`

	// Ports is the mapping a running container must publish, like "8080->8080".
	Ports string `yaml:"ports,omitempty"`

	URL    string `yaml:"url,omitempty"`
	Expect string `yaml:"expect,omitempty"`

	// Message replaces the default failure text of single-outcome rules
	// (exact-line, image-exists, container-stopped, container-deleted,
	// image-deleted, file-transfer without minimums).
	Message string `yaml:"message,omitempty"`
}

// Validate checks that the rule names a known kind and carries its required fields.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("rule of kind %q has no name", r.Kind)
	}
	if !r.Kind.known() {
		return fmt.Errorf("rule %q: unknown kind %q", r.Name, r.Kind)
	}

	missing := func(field string) error {
		return fmt.Errorf("rule %q (%s): %s is required", r.Name, r.Kind, field)
	}

	switch r.Kind {
	case KindRequiredInstructions:
		if len(r.Keywords) == 0 {
			return missing("keywords")
		}
	case KindExactLine:
		if strings.TrimSpace(r.Line) == "" {
			return missing("line")
		}
	case KindImageExists, KindContainerStopped, KindContainerDeleted:
		if r.Image == "" {
			return missing("image")
		}
	case KindContainerRunning:
		if r.Image == "" {
			return missing("image")
		}
		if r.Ports != "" && !strings.Contains(r.Ports, "->") {
			return fmt.Errorf("rule %q: ports must look like host->container, got %q", r.Name, r.Ports)
		}
	case KindImageDeleted:
		if r.Image == "" {
			return missing("image")
		}
		if r.Tag == "" {
			return missing("tag")
		}
	case KindHTTPEndpoint:
		if r.URL == "" {
			return missing("url")
		}
	}

	if r.MinFrom < 0 || r.MinTransfer < 0 || r.MinRun < 0 {
		return fmt.Errorf("rule %q: minimum counts must not be negative", r.Name)
	}
	return nil
}

func (r Rule) allowedPrefixes() []string {
	if len(r.AllowedPrefixes) == 0 {
		return DefaultAllowedBaseImages
	}
	return r.AllowedPrefixes
}

func (r Rule) minFrom() int {
	if r.MinFrom == 0 {
		return 2
	}
	return r.MinFrom
}

func (r Rule) failure(defaultMessage string) string {
	if r.Message != "" {
		return r.Message
	}
	return defaultMessage
}
