package notifier

// SellNote describes a completed sell for the optional notification sink.
type SellNote struct {
	Wallet         string
	Signature      string
	TokenName      string
	SoldMinorUnits uint64
	GotLamports    int64
}

// Notifier receives successful sell outcomes. Failures are the notifier's
// own problem; the cycle engine never blocks or retries on notification.
type Notifier interface {
	NotifySell(note SellNote)
}

// NoopNotifier is used when Telegram is not configured.
type NoopNotifier struct{}

func NewNoopNotifier() *NoopNotifier { return &NoopNotifier{} }

func (n *NoopNotifier) NotifySell(_ SellNote) {}

// Obfuscate shortens a wallet address for public notification channels,
// keeping just enough to recognize it.
func Obfuscate(addr string) string {
	if len(addr) <= 8 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}
