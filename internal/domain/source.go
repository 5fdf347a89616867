package domain

// Source identifies the upstream API a record came from.
type Source string

const (
	SourceCoinGecko   Source = "coingecko"
	SourceDeFiLlama   Source = "defillama"
	SourceDexScreener Source = "dexscreener"
	SourceProcessed   Source = "processed"
)

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is a valid value.
func (s Source) IsValid() bool {
	switch s {
	case SourceCoinGecko, SourceDeFiLlama, SourceDexScreener, SourceProcessed:
		return true
	}
	return false
}
