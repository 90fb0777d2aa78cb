// Package runtime runs build steps inside sandbox containers backed by
// containerd.
//
// A [Runtime] connects to a containerd daemon. The sandbox image (an OCI
// archive holding a minimal userland with a shell, tar and sleep) is
// imported once, tagged with a digest of its path and unpacked for the
// build platform. Each build step then gets a fresh [Sandbox]: a container
// with its own snapshot and no network, kept alive by a long-running task
// so that the realizer can exec the step's builder and copy store paths in
// and out as tar streams. Sandboxes are labelled so that leftovers from an
// interrupted daemon can be found and pruned.
//
// Example usage:
//
//	rt, err := runtime.New(runtime.Config{
//	    Address:   "/run/containerd/containerd.sock",
//	    Namespace: "cruxpkgs",
//	})
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	tag, err := rt.ImportImage(ctx, "sandbox.tar")
//	if err != nil {
//	    return err
//	}
//
//	sb, err := rt.StartSandbox(ctx, tag, "linux/amd64", "hello-2.12.1")
//	if err != nil {
//	    return err
//	}
//	defer sb.Destroy(ctx)
//
//	result, err := sb.Exec(ctx, runtime.Process{Args: []string{"/bin/sh", "-c", "echo hello"}})
//	if err != nil {
//	    return err
//	}
package runtime
