package main

import (
	"context"
	"io"
	"os"

	pistonpress "github.com/alnah/go-pistonpress"
)

// Press is a running printer as seen by the commands.
type Press interface {
	pistonpress.TemplatePrinter
	Stats() pistonpress.QueueStats
}

// Compile-time interface implementation check.
var _ Press = (*pistonpress.Queue)(nil)

// LaunchFunc starts a Press. Tests replace it with a fake.
type LaunchFunc func(ctx context.Context, dirs pistonpress.Directories, opts ...pistonpress.Option) (Press, error)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Stdout io.Writer
	Stderr io.Writer
	Launch LaunchFunc
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Launch: launchQueue,
	}
}

// launchQueue adapts pistonpress.Launch to LaunchFunc.
func launchQueue(ctx context.Context, dirs pistonpress.Directories, opts ...pistonpress.Option) (Press, error) {
	q, err := pistonpress.Launch(ctx, dirs, opts...)
	if err != nil {
		return nil, err
	}
	return q, nil
}
