package referral

import (
	"strconv"

	"hivefarm/crypto"
)

// Key layout for the referral registry. Addresses are embedded raw; the
// prefixes keep the records disjoint within the shared KV space.

func edgeKey(user crypto.Address) []byte {
	return append([]byte("referral/edge/"), user.Bytes()...)
}

func level1RateKey(referrer crypto.Address) []byte {
	return append([]byte("referral/rate1/"), referrer.Bytes()...)
}

func depositFlagKey(referrer crypto.Address) []byte {
	return append([]byte("referral/depositflag/"), referrer.Bytes()...)
}

func meterKey(referrer crypto.Address, level uint8) []byte {
	key := append([]byte("referral/meter/"), referrer.Bytes()...)
	key = append(key, '/')
	return append(key, []byte(strconv.FormatUint(uint64(level), 10))...)
}
