// Package registry resolves which container registry hosts an image and builds the client that lists its versions.
//
// Key components:
//   - Resolve: Classifies an image repository string as GitHub, DockerHub or Undefined.
//   - NewClient: Returns the types.RegistryClient for a resolved variant.
//   - Credentials: Reads Docker Hub credentials from REPO_USER/REPO_PASS or the docker config file.
//   - providers/github: Lists ghcr.io package versions through the GitHub REST API.
//   - providers/dockerhub: Lists Docker Hub repository tags.
//
// Usage example:
//
//	provider, err := registry.Resolve("ghcr.io/mirio/verbacap")
//	if err != nil {
//	    return err
//	}
//	client, err := registry.NewClient(provider, registry.LoadOptions("", "", time.Minute))
//	coordinate, err := client.GetMetadata("ghcr.io/mirio/verbacap")
//	records, err := client.ListVersions(ctx, coordinate)
//
// Clients are cheap and stateless beyond their options, so one is built per entry.
package registry
