/*
Package toolchain detects which C compiler family builds the introspection
probe and normalizes how that family is invoked.

A Profile is computed once per run by Detect from the environment, the host
platform and an optional explicit family. It never mutates the process
environment: markers a family needs in its child processes are exposed by
Profile.Environ and applied to each command that is started.
*/
package toolchain
