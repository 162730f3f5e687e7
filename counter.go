package gcm

import "encoding/binary"

// counter generates successive CTR input blocks. Per SP 800-38D only
// the low 32 bits of the block increment, big-endian, wrapping on
// overflow. Counter exhaustion past 2^32-2 blocks under one nonce is
// the caller's contract and is not detected.
type counter struct {
	block [blockSize]byte
}

// fill writes n successive counter blocks to dst and leaves the
// counter ready for the block after them.
//
// Almost every group stays within the current low byte, so the common
// path bumps only block[15]. Crossing a 256-boundary takes the full
// big-endian add with carry.
func (c *counter) fill(dst []byte, n int) {
	if int(c.block[15])+n <= 0xff {
		for i := 0; i < n; i++ {
			copy(dst[i*blockSize:], c.block[:])
			c.block[15]++
		}
		return
	}
	for i := 0; i < n; i++ {
		copy(dst[i*blockSize:], c.block[:])
		inc32(&c.block)
	}
}

// inc32 increments the low 32 bits of block, wrapping on overflow.
func inc32(block *[blockSize]byte) {
	ctr := binary.BigEndian.Uint32(block[12:])
	binary.BigEndian.PutUint32(block[12:], ctr+1)
}
