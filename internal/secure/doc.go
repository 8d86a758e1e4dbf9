// Package secure keeps signing keys sealed in memory.
//
// Keys are held in a memguard enclave, encrypted with XSalsa20Poly1305 while
// at rest, and only decrypted into a locked buffer for the duration of a
// single signing operation:
//
//	key, err := secure.SealBase64(accountKey)
//	if err != nil {
//	    return err
//	}
//	defer key.Destroy()
//
//	err = key.Use(func(raw []byte) error {
//	    mac := hmac.New(sha256.New, raw)
//	    ...
//	})
//
// The raw bytes passed to Use must not be retained after the callback
// returns; the buffer is wiped as soon as it does.
//
// Memory locking requires RLIMIT_MEMLOCK on Linux. When mlock is unavailable
// memguard falls back to ordinary memory and the key is still encrypted at
// rest.
package secure
