package stage

import "github.com/c4rb0nx1/dockgrade/internal/check"

// Names shared by the built-in stages.
const (
	AppImage = "hyper-web-app"
	AppTag   = "latest"
	AppURL   = "http://localhost:8080"
	AppPorts = "8080->8080"

	// AppWelcome is the fragment the running application must serve.
	AppWelcome = `Welcome to <span class="highlight">Run Docker Run</span> 🚀`
)

// Builtin returns the five stages of the exercise. Each call returns a fresh
// copy the caller may modify.
func Builtin() []Stage {
	return []Stage{
		{
			Number:      1,
			Name:        "Base images",
			Description: "Pick JVM base images, split the build into named stages and pull the images.",
			Rules: []check.Rule{
				{Name: "valid-base-images", Kind: check.KindBaseImages},
				{Name: "named-multi-stage-build", Kind: check.KindMultiStage, RequireStageName: true, RequireDockerignore: true},
				{Name: "base-images-pulled", Kind: check.KindBaseImagesPresent},
			},
		},
		{
			Number:      2,
			Name:        "Dockerfile content",
			Description: "Write the instructions that build and start the application.",
			Rules: []check.Rule{
				{
					Name:     "required-instructions",
					Kind:     check.KindRequiredInstructions,
					Keywords: []string{"FROM", "WORKDIR", "EXPOSE", "RUN", "ENTRYPOINT"},
				},
				{Name: "file-transfer", Kind: check.KindFileTransfer},
				{Name: "valid-base-images", Kind: check.KindBaseImages},
				{Name: "multi-stage-build", Kind: check.KindMultiStage},
				{
					Name:    "exposed-port",
					Kind:    check.KindExactLine,
					Line:    "expose 8080",
					Message: "The Dockerfile should expose port 8080 for the Spring Boot application!",
				},
			},
		},
		{
			Number:      3,
			Name:        "Image build",
			Description: "Build the application image with the expected tag.",
			Rules: []check.Rule{
				{Name: "custom-image-built", Kind: check.KindImageExists, Image: AppImage + ":" + AppTag},
			},
		},
		{
			Number:      4,
			Name:        "Container run",
			Description: "Run the image with the application port published and serving the welcome page.",
			Rules: []check.Rule{
				{Name: "container-running", Kind: check.KindContainerRunning, Image: AppImage, Ports: AppPorts},
				{Name: "web-server-response", Kind: check.KindHTTPEndpoint, URL: AppURL, Expect: AppWelcome},
			},
		},
		{
			Number:      5,
			Name:        "Cleanup",
			Description: "Stop and remove the container, then remove the image.",
			Rules: []check.Rule{
				{Name: "container-stopped", Kind: check.KindContainerStopped, Image: AppImage},
				{Name: "container-deleted", Kind: check.KindContainerDeleted, Image: AppImage},
				{Name: "image-deleted", Kind: check.KindImageDeleted, Image: AppImage, Tag: AppTag},
			},
		},
	}
}
