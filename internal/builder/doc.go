// Package builder turns a published application into a platform package.
//
// [New] checks the requested kind against the capability table and returns a
// [Builder] whose pipeline is a fixed, ordered list of phases. Each package
// kind is a variant contributing its own validation checks and phases; the
// phases themselves come from a shared step library (skeleton, publish,
// icons, templates, permissions, signing, notarization, archiving).
//
// A required phase that fails aborts the build and leaves the working tree
// in place for inspection. Optional phases log a warning on failure. Phases
// gated on credentials (signing, notarization) are skipped with an
// informational message when the credential is absent, but once entered
// their failures are fatal.
//
// Example usage:
//
//	b, err := builder.New(req, app, builder.Deps{Host: host.New(), Runner: inv})
//	if err != nil {
//	    return err
//	}
//	if err := b.Validate(); err != nil {
//	    return err
//	}
//	if err := b.Build(ctx); err != nil {
//	    return err
//	}
package builder
