package version

const development = "development"

// version is set at build time:
// go build -ldflags "-X github.com/gielenor/launcher/src/internal/version.version=1.4.0"
var version = development

// Current returns the version of the running launcher
func Current() string {
	return version
}

// IsDevelopment reports whether the binary was built without a release version
func IsDevelopment() bool {
	return version == development || version == ""
}
