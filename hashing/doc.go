// Package hashing hashes passwords with cost parameters sized to the memory
// the process can spare at call time.
//
// # Architecture
//
// [Select] is the sizing policy.  Given a [CostConfig], the algorithms the
// process supports, the memory limit, and the memory in use, it returns a
// [Selection]: Argon2id (or Argon2i) with memory, time, and thread costs when
// the budget clears the cutoff, bcrypt otherwise.  Select is a pure function.
//
// A [Driver] implements one algorithm.  Three ship with this package:
//
//   - [Argon2idDriver]: primary memory-hard algorithm
//   - [Argon2iDriver]: secondary memory-hard algorithm
//   - [BcryptDriver]: fallback
//
// A [Registry] holds drivers by [Algorithm].  It is both the hashing backend
// ([Primitive]) and the answer to "which algorithms are available"
// ([Capabilities]).
//
// [AdaptiveHasher] ties the pieces together: it reads a [memlimit.Source],
// selects parameters, hashes, and guards against a primitive that keeps
// reporting fresh hashes as stale.
//
// # Quick start
//
//	hash, err := hashing.HashPassword(ctx, "my-secret-password", hashing.DefaultCostConfig())
//	if err != nil { log.Fatal(err) }
//
// Or, keeping a configured hasher around:
//
//	h, err := hashing.NewAdaptiveHasher(hashing.DefaultCostConfig(),
//	    hashing.WithConcurrency(4))
//	hash, _ := h.HashPassword(ctx, password)
//	ok, _   := h.Verify(password, hash)
//
// # Sizing
//
// With the default config and a 128 MiB limit, nothing in use:
//
//	available   = 134217728 bytes
//	availableKiB = floor(0.8 × 134217728 / 1024) = 104857
//	memory cost = min(104857, 131072) = 104857 ≥ 24576 → argon2id
//	final cost  = min(104857, 131072 × 3) = 104857
//
// With a 16 MiB limit the memory cost is 13107 KiB, below the cutoff, so
// bcrypt is used.  An unlimited process ("-1") is sized as if it had 2 GiB.
//
// # Rehashing on login
//
//	ok, _ := h.Verify(password, stored)
//	if ok {
//	    if needs, _ := h.NeedsRehash(stored); needs {
//	        fresh, _ := h.HashPassword(ctx, password)
//	        persist(userID, fresh)
//	    }
//	}
//
// # Hash format
//
// Argon2 hashes use the PHC string format and bcrypt the Modular Crypt
// Format, so every parameter needed for verification is in the string:
//
//	$argon2id$v=19$m=104857,t=4,p=4$<base64-salt>$<base64-hash>
//	$2a$12$<salt+hash>
package hashing
