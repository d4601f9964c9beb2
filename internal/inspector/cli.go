package inspector

import (
	"context"
	"fmt"
	"strings"

	"github.com/c4rb0nx1/dockgrade/internal/runner"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// CLI inspects the runtime by running its command-line client and parsing
// the JSON-per-line output of --format "{{json .}}".
type CLI struct {
	binary string
	runner runner.Commander
}

// NewCLI returns an inspector that shells out to binary (for example "docker" or "podman").
func NewCLI(binary string, r runner.Commander) *CLI {
	if binary == "" {
		binary = "docker"
	}
	return &CLI{binary: binary, runner: r}
}

// ListImages runs "<binary> images" and parses one record per line.
func (c *CLI) ListImages(ctx context.Context) ([]ImageRecord, error) {
	lines, err := c.list(ctx, fmt.Sprintf(`%s images --format "{{json .}}"`, c.binary))
	if err != nil {
		return nil, err
	}

	images := make([]ImageRecord, 0, len(lines))
	for _, line := range lines {
		rec, ok := parseImageLine(line)
		if !ok {
			log.Debug().Str("line", line).Msg("Skipping unparsable image line")
			continue
		}
		images = append(images, rec)
	}
	return images, nil
}

// ListContainers runs "<binary> ps" (with -a when all is set) and parses one record per line.
func (c *CLI) ListContainers(ctx context.Context, all bool) ([]ContainerRecord, error) {
	command := fmt.Sprintf(`%s ps --format "{{json .}}"`, c.binary)
	if all {
		command = fmt.Sprintf(`%s ps -a --format "{{json .}}"`, c.binary)
	}

	lines, err := c.list(ctx, command)
	if err != nil {
		return nil, err
	}

	containers := make([]ContainerRecord, 0, len(lines))
	for _, line := range lines {
		rec, ok := parseContainerLine(line)
		if !ok {
			log.Debug().Str("line", line).Msg("Skipping unparsable container line")
			continue
		}
		containers = append(containers, rec)
	}
	return containers, nil
}

// list runs a listing command. A failed listing is treated as an empty one.
func (c *CLI) list(ctx context.Context, command string) ([]string, error) {
	res, err := c.runner.Run(ctx, command)
	if err != nil {
		return nil, fmt.Errorf("error while executing %s command: %w", c.binary, err)
	}
	if res.ExitCode != 0 {
		log.Warn().Str("command", command).Int("exit_code", res.ExitCode).Msg("Listing command failed, treating as empty")
		return nil, nil
	}

	lines := make([]string, 0, len(res.Lines))
	for _, line := range res.Lines {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func parseFields(line string) (map[string]string, bool) {
	if !gjson.Valid(line) {
		return nil, false
	}
	parsed := gjson.Parse(line)
	if !parsed.IsObject() {
		return nil, false
	}

	fields := make(map[string]string)
	parsed.ForEach(func(key, value gjson.Result) bool {
		fields[key.String()] = value.String()
		return true
	})
	return fields, true
}

func parseImageLine(line string) (ImageRecord, bool) {
	fields, ok := parseFields(line)
	if !ok {
		// plain {{.Repository}}:{{.Tag}} output
		repo, tag, ok := splitRepoTag(strings.Trim(line, `"`))
		if !ok {
			return ImageRecord{}, false
		}
		return ImageRecord{
			Repository: repo,
			Tag:        tag,
			Fields:     map[string]string{"Repository": repo, "Tag": tag},
		}, true
	}

	return ImageRecord{
		ID:         fields["ID"],
		Repository: fields["Repository"],
		Tag:        fields["Tag"],
		Size:       fields["Size"],
		Fields:     fields,
	}, true
}

func parseContainerLine(line string) (ContainerRecord, bool) {
	fields, ok := parseFields(line)
	if !ok {
		return ContainerRecord{}, false
	}

	return ContainerRecord{
		ID:     fields["ID"],
		Image:  fields["Image"],
		Names:  fields["Names"],
		Ports:  fields["Ports"],
		State:  fields["State"],
		Status: fields["Status"],
		Fields: fields,
	}, true
}
