package buffer

import (
	"encoding/hex"
	"strings"

	"vaultcore/crypto"
)

var (
	bufferRecordPrefix   = []byte("buffer/state/")
	bufferSharesPrefix   = []byte("buffer/shares/")
	tokenBalancePrefix   = []byte("buffer/balance/")
	tokenAllowancePrefix = []byte("buffer/allowance/")
)

func bufferRecordKey(id BufferID) []byte {
	return appendParts(bufferRecordPrefix, id.String())
}

func bufferSharesKey(id BufferID, owner crypto.Address) []byte {
	return appendParts(bufferSharesPrefix, id.String(), hex.EncodeToString(owner.Bytes()))
}

func tokenBalanceKey(asset string, addr crypto.Address) []byte {
	return appendParts(tokenBalancePrefix, normalizeAsset(asset), hex.EncodeToString(addr.Bytes()))
}

func tokenAllowanceKey(asset string, owner, spender crypto.Address) []byte {
	return appendParts(tokenAllowancePrefix, normalizeAsset(asset),
		hex.EncodeToString(owner.Bytes()), hex.EncodeToString(spender.Bytes()))
}

func appendParts(prefix []byte, parts ...string) []byte {
	joined := strings.Join(parts, "/")
	buf := make([]byte, len(prefix)+len(joined))
	copy(buf, prefix)
	copy(buf[len(prefix):], joined)
	return buf
}
