package token

import (
	"strconv"

	"hivefarm/crypto"
)

func nftKey(id uint64) []byte {
	return append([]byte("nft/token/"), []byte(strconv.FormatUint(id, 10))...)
}

func nftHolderKey(holder crypto.Address) []byte {
	return append([]byte("nft/holder/"), holder.Bytes()...)
}
