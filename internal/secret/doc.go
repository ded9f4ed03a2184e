// Package secret encrypts and decrypts sensitive configuration fields.
//
// Secrets are sealed with an age X25519 identity. The identity is the only
// key material and is loaded from a [KeySource]: a key file on disk or an
// entry in the operating system keyring. When the source holds no key yet,
// the store can generate one on first use.
//
// Ciphertext is the binary age file encoded as standard base64, so every
// sealed value starts with the base64 form of the age header line. The store
// recognises ciphertext structurally through that prefix and a minimum
// length; see [Store.IsEncrypted].
//
// Example usage:
//
//	store := secret.New(secret.FileKey{Path: paths.KeyFile()}, true)
//
//	sealed, err := store.Encrypt("hunter2")
//	if err != nil {
//	    return err
//	}
//
//	plain, err := store.Decrypt(sealed)
package secret
