// Records derivations and their realizations in a SQLite database.
//
// The database maps a derivation digest to its display name and canonical
// JSON description, and each (digest, output) pair to the store path the
// output was realized at. The realizer consults it to skip steps whose
// outputs already exist.
//
// Example usage:
//
//	st, err := store.Open(paths.Database())
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	if err := st.PutDerivation(ctx, h); err != nil {
//	    return err
//	}
package store
