package rdb

import "errors"

var errLZFCorrupt = errors.New("corrupt lzf data")

// lzfDecompress expands an LZF block into exactly outLen bytes.
// lzf_d.c::lzf_decompress
func lzfDecompress(in []byte, outLen int) ([]byte, error) {
	out := make([]byte, outLen)
	ip, op := 0, 0
	for ip < len(in) {
		ctrl := int(in[ip])
		ip++

		if ctrl < 1<<5 {
			// Literal run of ctrl+1 bytes.
			n := ctrl + 1
			if ip+n > len(in) || op+n > outLen {
				return nil, errLZFCorrupt
			}
			copy(out[op:], in[ip:ip+n])
			ip += n
			op += n
			continue
		}

		// Back reference.
		n := ctrl >> 5
		ref := op - ((ctrl & 0x1f) << 8) - 1
		if n == 7 {
			if ip >= len(in) {
				return nil, errLZFCorrupt
			}
			n += int(in[ip])
			ip++
		}
		if ip >= len(in) {
			return nil, errLZFCorrupt
		}
		ref -= int(in[ip])
		ip++
		n += 2

		if ref < 0 || op+n > outLen {
			return nil, errLZFCorrupt
		}
		// Source and destination may overlap, copy byte by byte.
		for i := 0; i < n; i++ {
			out[op] = out[ref]
			op++
			ref++
		}
	}
	if op != outLen {
		return nil, errLZFCorrupt
	}
	return out, nil
}
