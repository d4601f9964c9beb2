package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/c4rb0nx1/dockgrade/internal/inspector"
)

func TestRunStagesListsBuiltinCatalogue(t *testing.T) {
	isolateConfig(t)
	prev := stagesRules
	t.Cleanup(func() { stagesRules = prev })
	stagesRules = true

	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	if err := runStages(cmd, nil); err != nil {
		t.Fatalf("runStages failed: %v", err)
	}

	body := out.String()
	for _, expected := range []string{
		"Base images",
		"Cleanup",
		"- exposed-port",
		`line="expose 8080"`,
		"image=hyper-web-app:latest",
		"ports=8080->8080",
		"keywords=FROM,WORKDIR,EXPOSE,RUN,ENTRYPOINT",
	} {
		if !strings.Contains(body, expected) {
			t.Fatalf("stages output missing %q: %q", expected, body)
		}
	}
}

func TestRunImagesPrintsTableAndTotal(t *testing.T) {
	isolateConfig(t)
	useFakeInspector(t, &fakeInspector{images: []inspector.ImageRecord{
		{ID: "0123456789ab", Repository: "hyper-web-app", Tag: "latest", Size: "312MB"},
		{ID: "ba9876543210", Repository: "eclipse-temurin", Tag: "17-jre", Size: "188MB"},
	}})

	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	if err := runImages(cmd, nil); err != nil {
		t.Fatalf("runImages failed: %v", err)
	}

	body := out.String()
	if !strings.Contains(body, "hyper-web-app") || !strings.Contains(body, "17-jre") {
		t.Fatalf("images output missing rows: %q", body)
	}
	if !strings.Contains(body, "Found 2 images (500MB total)") {
		t.Fatalf("images output missing total: %q", body)
	}
}

func TestRunImagesEmpty(t *testing.T) {
	isolateConfig(t)
	useFakeInspector(t, &fakeInspector{})

	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	if err := runImages(cmd, nil); err != nil {
		t.Fatalf("runImages failed: %v", err)
	}
	if strings.TrimSpace(out.String()) != "No images found" {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestRunPsHonoursAllFlag(t *testing.T) {
	isolateConfig(t)
	fake := &fakeInspector{containers: []inspector.ContainerRecord{
		{ID: "c0ffee000001", Image: "hyper-web-app", State: "exited", Names: "web"},
	}}
	useFakeInspector(t, fake)
	prev := psAll
	t.Cleanup(func() { psAll = prev })
	psAll = true

	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	if err := runPs(cmd, nil); err != nil {
		t.Fatalf("runPs failed: %v", err)
	}
	if !fake.lastAll {
		t.Fatal("expected ps -a to request all containers")
	}
	if !strings.Contains(out.String(), "exited") || !strings.Contains(out.String(), "  -  ") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}
