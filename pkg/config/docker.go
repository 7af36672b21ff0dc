package config

import (
	"os"
	"strings"
	"sync"
)

// DockerHostGateway is the name Docker Desktop resolves to the host machine.
const DockerHostGateway = "host.docker.internal"

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker returns true if the application is running inside a Docker container.
// Detection is based on the presence of /.dockerenv. The result is cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker rewrites loopback datasource hosts to DockerHostGateway
// when running in Docker, so a datasource on the host machine stays reachable.
// Other hosts are returned unchanged.
func ResolveHostForDocker(host string) string {
	return resolveHost(host, IsRunningInDocker())
}

func resolveHost(host string, inDocker bool) string {
	if !inDocker {
		return host
	}
	switch strings.ToLower(host) {
	case "localhost", "127.0.0.1", "::1":
		return DockerHostGateway
	}
	return host
}
