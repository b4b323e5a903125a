package pipecheck

import "context"

// Builder compiles a transform script into a deployable artifact and returns
// the artifact path. Build must fail if the artifact is absent afterwards.
type Builder interface {
	Build(ctx context.Context, script *TransformScript) (string, error)
}

// Deployer pushes a built artifact to the pipeline engine under a target
// label.
type Deployer interface {
	Deploy(ctx context.Context, artifactPath, label string) error
}
