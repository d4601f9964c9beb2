package check

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"github.com/c4rb0nx1/dockgrade/internal/dockerfile"
	"github.com/c4rb0nx1/dockgrade/internal/inspector"
)

// Env is what a rule may consult while it is evaluated.
type Env struct {
	// DockerfilePath resolves the learner's Dockerfile path. It is called once
	// per rule that reads the Dockerfile.
	DockerfilePath func(ctx context.Context) (string, error)

	Inspector inspector.Inspector
	HTTP      *retryablehttp.Client
}

// Evaluate runs one rule and returns exactly one verdict. Errors never escape:
// they become a failing verdict carrying the error text.
func Evaluate(ctx context.Context, rule Rule, env Env) Verdict {
	logger := log.With().Str("rule", rule.Name).Str("kind", string(rule.Kind)).Logger()
	logger.Debug().Msg("Evaluating rule")

	var file *dockerfile.File
	if rule.Kind.NeedsDockerfile() {
		var verdict *Verdict
		file, verdict = loadDockerfile(ctx, rule, env)
		if verdict != nil {
			return *verdict
		}
	}

	var v Verdict
	switch rule.Kind {
	case KindBaseImages:
		v = baseImages(rule, file)
	case KindMultiStage:
		v = multiStage(rule, file)
	case KindRequiredInstructions:
		v = requiredInstructions(rule, file)
	case KindFileTransfer:
		v = fileTransfer(rule, file)
	case KindExactLine:
		v = exactLine(rule, file)
	case KindBaseImagesPresent:
		v = baseImagesPresent(ctx, rule, file, env)
	case KindImageExists:
		v = imageExists(ctx, rule, env)
	case KindContainerRunning:
		v = containerRunning(ctx, rule, env)
	case KindHTTPEndpoint:
		v = httpEndpoint(ctx, rule, env)
	case KindContainerStopped:
		v = containerStopped(ctx, rule, env)
	case KindContainerDeleted:
		v = containerDeleted(ctx, rule, env)
	case KindImageDeleted:
		v = imageDeleted(ctx, rule, env)
	default:
		v = Fail(rule.Name, "unknown rule kind %q", rule.Kind)
	}

	logger.Debug().Bool("passed", v.Passed).Msg("Rule evaluated")
	return v
}

func loadDockerfile(ctx context.Context, rule Rule, env Env) (*dockerfile.File, *Verdict) {
	if env.DockerfilePath == nil {
		v := Fail(rule.Name, "no Dockerfile path source configured")
		return nil, &v
	}

	path, err := env.DockerfilePath(ctx)
	if err != nil {
		v := Fail(rule.Name, "%s", err.Error())
		return nil, &v
	}

	file, err := dockerfile.Load(path)
	if err != nil {
		var v Verdict
		if errors.Is(err, dockerfile.ErrInvalidPath) {
			v = Fail(rule.Name, "The provided Dockerfile path '%s' is invalid or the file does not exist.", path)
		} else {
			v = Fail(rule.Name, "%s", err.Error())
		}
		return nil, &v
	}

	if untagged := dockerfile.UntaggedBaseImages(file.Text); len(untagged) > 0 {
		log.Warn().Strs("images", untagged).Str("dockerfile", path).
			Msg("FROM lines without an explicit tag are ignored by base image rules")
	}
	return file, nil
}

func baseImages(rule Rule, file *dockerfile.File) Verdict {
	allowed := rule.allowedPrefixes()

	var invalid []string
	for _, img := range dockerfile.ExtractBaseImages(file.Text) {
		if !hasAnyPrefix(img.Repository, allowed) {
			invalid = append(invalid, img.String())
		}
	}
	if len(invalid) == 0 {
		return Pass(rule.Name)
	}

	return Fail(rule.Name,
		"The Dockerfile uses invalid base image(s): %s. Please use a valid JVM-based base image such as %s.",
		strings.Join(invalid, ", "), quoteList(allowed))
}

func multiStage(rule Rule, file *dockerfile.File) Verdict {
	if rule.RequireDockerignore && !file.HasSibling(".dockerignore") {
		return Fail(rule.Name, "The .dockerignore file is missing in the project directory.")
	}

	enough := dockerfile.CountInstruction(file.Text, "from") >= rule.minFrom()
	if rule.RequireStageName {
		if enough && dockerfile.HasStageName(file.Text) {
			return Pass(rule.Name)
		}
		return Fail(rule.Name, "%s", rule.failure(
			"The Dockerfile should use multi-stage builds with at least two `FROM` instructions. "+
				"Please ensure that the Dockerfile has a build stage and a run stage and uses the appropriate keywords to name them."))
	}

	if enough {
		return Pass(rule.Name)
	}
	return Fail(rule.Name, "%s", rule.failure("The Dockerfile should use multi-stage builds!"))
}

func requiredInstructions(rule Rule, file *dockerfile.File) Verdict {
	for _, keyword := range rule.Keywords {
		if !dockerfile.ContainsInstruction(file.Text, keyword) {
			return Fail(rule.Name, "The Dockerfile is missing the `%s` instruction!", strings.ToUpper(keyword))
		}
	}
	return Pass(rule.Name)
}

func fileTransfer(rule Rule, file *dockerfile.File) Verdict {
	if !strings.Contains(file.Text, "copy") && !strings.Contains(file.Text, "add") {
		return Fail(rule.Name, "%s", rule.failure("The Dockerfile must include instructions to transfer files into the image!"))
	}

	if rule.MinTransfer > 0 {
		transfers := dockerfile.CountPrefix(file.Text, "copy") + dockerfile.CountPrefix(file.Text, "add")
		if transfers < rule.MinTransfer {
			return Fail(rule.Name,
				"The Dockerfile should contain at least %d `COPY` or `ADD` instructions, found %d.",
				rule.MinTransfer, transfers)
		}
	}
	if rule.MinRun > 0 {
		runs := dockerfile.CountPrefix(file.Text, "run")
		if runs < rule.MinRun {
			return Fail(rule.Name,
				"The Dockerfile should contain at least %d `RUN` instructions, found %d.",
				rule.MinRun, runs)
		}
	}
	return Pass(rule.Name)
}

func exactLine(rule Rule, file *dockerfile.File) Verdict {
	if dockerfile.HasExactLine(file.Text, rule.Line) {
		return Pass(rule.Name)
	}
	return Fail(rule.Name, "%s", rule.failure(fmt.Sprintf("The Dockerfile should contain the line `%s`!", rule.Line)))
}

func baseImagesPresent(ctx context.Context, rule Rule, file *dockerfile.File, env Env) Verdict {
	var missing []string
	for _, img := range dockerfile.ExtractBaseImages(file.Text) {
		// the runtime is queried per base image so each answer is current
		images, err := listImages(ctx, env)
		if err != nil {
			return Fail(rule.Name, "%s", err.Error())
		}
		if !inspector.ImageExists(images, img.String()) {
			missing = append(missing, img.String())
		}
	}
	if len(missing) == 0 {
		return Pass(rule.Name)
	}

	return Fail(rule.Name,
		"The following base image(s) are missing in the local system: %s. "+
			"Please ensure that the required base images are available in the local system.",
		strings.Join(missing, ", "))
}

func imageExists(ctx context.Context, rule Rule, env Env) Verdict {
	images, err := listImages(ctx, env)
	if err != nil {
		return Fail(rule.Name, "%s", err.Error())
	}
	if inspector.ImageExists(images, rule.Image) {
		return Pass(rule.Name)
	}
	return Fail(rule.Name, "%s", rule.failure(fmt.Sprintf(
		"The custom Docker image '%s' was not found in the system. Make sure to build the image using the correct tag!",
		rule.Image)))
}

func containerRunning(ctx context.Context, rule Rule, env Env) Verdict {
	containers, err := listContainers(ctx, env, false)
	if err != nil {
		return Fail(rule.Name, "%s", err.Error())
	}
	if len(containers) == 0 {
		return Fail(rule.Name, "No running containers were found. Ensure that your container is running.")
	}

	c := inspector.FindContainerByImage(containers, rule.Image)
	if c == nil {
		return Fail(rule.Name, "Couldn't find a running container created from the '%s' image!", rule.Image)
	}

	if rule.Ports == "" {
		return Pass(rule.Name)
	}

	ports := normalizePorts(c.Ports)
	if strings.Contains(ports, rule.Ports) {
		return Pass(rule.Name)
	}

	host, target, _ := strings.Cut(rule.Ports, "->")
	return Fail(rule.Name, "The container should map port %s on the container to port %s on the host! Found: %s",
		target, host, ports)
}

func containerStopped(ctx context.Context, rule Rule, env Env) Verdict {
	containers, err := listContainers(ctx, env, true)
	if err != nil {
		return Fail(rule.Name, "%s", err.Error())
	}

	c := inspector.FindContainerByImage(containers, rule.Image)
	if c == nil || !strings.Contains(strings.ToLower(c.State), "running") {
		return Pass(rule.Name)
	}
	return Fail(rule.Name, "%s", rule.failure(fmt.Sprintf(
		"The container created from the '%s' image should be stopped!", rule.Image)))
}

func containerDeleted(ctx context.Context, rule Rule, env Env) Verdict {
	containers, err := listContainers(ctx, env, true)
	if err != nil {
		return Fail(rule.Name, "%s", err.Error())
	}

	if inspector.FindContainerByImage(containers, rule.Image) == nil {
		return Pass(rule.Name)
	}
	return Fail(rule.Name, "%s", rule.failure(fmt.Sprintf(
		"The container created from the '%s' image should be deleted!", rule.Image)))
}

func imageDeleted(ctx context.Context, rule Rule, env Env) Verdict {
	images, err := listImages(ctx, env)
	if err != nil {
		return Fail(rule.Name, "%s", err.Error())
	}

	if !inspector.HasImage(images, rule.Image, rule.Tag) {
		return Pass(rule.Name)
	}
	return Fail(rule.Name, "%s", rule.failure(fmt.Sprintf(
		"The image '%s:%s' should be deleted from the system!", rule.Image, rule.Tag)))
}

func listImages(ctx context.Context, env Env) ([]inspector.ImageRecord, error) {
	if env.Inspector == nil {
		return nil, errors.New("no container runtime inspector configured")
	}
	images, err := env.Inspector.ListImages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return images, nil
}

func listContainers(ctx context.Context, env Env, all bool) ([]inspector.ContainerRecord, error) {
	if env.Inspector == nil {
		return nil, errors.New("no container runtime inspector configured")
	}
	containers, err := env.Inspector.ListContainers(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	return containers, nil
}

func normalizePorts(ports string) string {
	return strings.NewReplacer(`\u003e`, ">", "&gt;", ">").Replace(ports)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// quoteList renders names as "`a`, `b`, or `c`".
func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "`" + n + "`"
	}
	switch len(quoted) {
	case 0:
		return ""
	case 1:
		return quoted[0]
	case 2:
		return quoted[0] + " or " + quoted[1]
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + ", or " + quoted[len(quoted)-1]
}
