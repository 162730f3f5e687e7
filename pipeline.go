package gcm

const (
	// groupBlocks is the lane group: the number of blocks ciphered
	// and hashed per pass. It matches the size of the hash-key
	// power table.
	groupBlocks = 8

	// deepDepth is the pipeline depth, in blocks, used when the
	// CPU has a carry-less multiply unit: the cipher stage runs
	// this many blocks ahead of the hash stage so the
	// multiply-reduce dependency chain overlaps independent cipher
	// work. Must be a multiple of groupBlocks. Depth affects
	// throughput only; the output is identical at any depth.
	deepDepth = 32
)

// bulkDepth returns the pipeline depth in blocks for this CPU.
func bulkDepth() int {
	if haveClmul {
		return deepDepth
	}
	return groupBlocks
}

// Scheduler states for one bulk pass. The cipher stage leads until
// the hash stage lags by the pipeline depth (leadIn), then the two
// advance in lockstep (steady), and the hash stage finishes alone
// (drain).
type schedState int

const (
	schedLeadIn schedState = iota
	schedSteady
	schedDrain
	schedDone
)

// bulk runs the pipeline over len(src) bytes, which must be a
// multiple of blockSize.
//
// Ciphertext is the hash stream: output when encrypting, input when
// decrypting. Pending groups are staged in the ring so that the hash
// stage never rereads caller memory; this is what makes dst == src
// safe on decryption, where the cipher stage would otherwise destroy
// the bytes the hash stage still needs.
func (s *Stream) bulk(dst, src []byte) {
	total := len(src)
	if total == 0 {
		return
	}
	depth := bulkDepth() * blockSize

	var cipherOff, hashOff int
	state := schedLeadIn
	for state != schedDone {
		switch state {
		case schedLeadIn:
			if cipherOff == total {
				state = schedDrain
				break
			}
			cipherOff += s.cipherStage(dst, src, cipherOff, total, depth)
			if cipherOff-hashOff >= depth {
				state = schedSteady
			}
		case schedSteady:
			if cipherOff == total {
				state = schedDrain
				break
			}
			// Fold the group ciphered depth bytes earlier, then
			// cipher the next group. The hash stage lags by
			// exactly depth here, so the incoming group reuses
			// the ring slot the lagging group occupies: it must
			// be folded before the slot is overwritten.
			hashOff += s.hashStage(hashOff, cipherOff, depth)
			cipherOff += s.cipherStage(dst, src, cipherOff, total, depth)
		case schedDrain:
			if hashOff == total {
				state = schedDone
				break
			}
			hashOff += s.hashStage(hashOff, cipherOff, depth)
		}
	}
}

// cipherStage enciphers up to one group of counter blocks, XORs them
// into dst, and stages the group's ciphertext in the ring for the
// hash stage.
//
// Groups are whole except possibly the last, so a group never wraps
// within the ring.
func (s *Stream) cipherStage(dst, src []byte, off, total, depth int) int {
	n := total - off
	if n > groupBlocks*blockSize {
		n = groupBlocks * blockSize
	}
	slot := s.ring[off%depth:][:n]
	if s.dir == Decrypt {
		copy(slot, src[off:off+n])
	}

	ks := s.ks[:n]
	s.ctr.fill(ks, n/blockSize)
	for o := 0; o < n; o += blockSize {
		s.key.block.Encrypt(ks[o:o+blockSize], ks[o:o+blockSize])
	}
	for i, c := range src[off : off+n] {
		dst[off+i] = c ^ ks[i]
	}

	if s.dir == Encrypt {
		copy(slot, dst[off:off+n])
	}
	return n
}

// hashStage folds up to one staged group into the accumulator.
func (s *Stream) hashStage(hashOff, cipherOff, depth int) int {
	n := cipherOff - hashOff
	if n > groupBlocks*blockSize {
		n = groupBlocks * blockSize
	}
	foldBlocks(&s.y, &s.key.pow, s.ring[hashOff%depth:][:n])
	return n
}
