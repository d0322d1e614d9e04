package mirror

import (
	"fmt"
	"time"
)

// Countdown formata o tempo restante até closing como "<h>h <m>m <s>s".
// Restante não positivo vira "closed".
func Countdown(closing, now time.Time) string {
	left := int64(closing.Sub(now) / time.Second)
	if left <= 0 {
		return "closed"
	}
	return fmt.Sprintf("%dh %dm %ds", left/3600, left%3600/60, left%60)
}
