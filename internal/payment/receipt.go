package payment

import (
	"strconv"
	"time"
)

const (
	receiptMaxLen        = 40
	receiptPrefix        = "sub_"
	receiptUserPrefixCap = 10
)

// BuildReceipt returns sub_<user>_<unix millis>. The user part is cut to
// whatever the 40 char budget leaves, so the timestamp always survives.
func BuildReceipt(userID string, now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 10)

	budget := receiptMaxLen - len(receiptPrefix) - len("_") - len(ts)
	if budget > receiptUserPrefixCap {
		budget = receiptUserPrefixCap
	}
	if budget < 0 {
		budget = 0
	}

	user := userID
	if len(user) > budget {
		user = user[:budget]
	}

	return receiptPrefix + user + "_" + ts
}
