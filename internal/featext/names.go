package featext

// Version gates artifact compatibility. Any change to the feature list,
// its order, or the semantics of a dimension requires a bump; models
// persisted under a different version refuse to load.
const Version = 3

// histBins is the fixed histogram bucket count for numeric columns.
const histBins = 6

// featureNames is the vector layout. Order is the persistence contract
// shared with every trained model.
var featureNames = []string{
	// statistical, numeric
	"num_mean",
	"num_std",
	"num_min",
	"num_max",
	"num_q25",
	"num_median",
	"num_q75",
	"num_range",
	"num_skew",
	"num_kurtosis",
	"num_frac_positive",
	"num_frac_integer",
	// fixed-bin histogram over the observed span
	"num_hist_0",
	"num_hist_1",
	"num_hist_2",
	"num_hist_3",
	"num_hist_4",
	"num_hist_5",
	// shared
	"uniq_ratio",
	"missing_ratio",
	// statistical, text
	"txt_len_mean",
	"txt_len_std",
	"txt_len_min",
	"txt_len_max",
	"txt_tokens_mean",
	"txt_tokens_std",
	"txt_frac_upper",
	"txt_frac_title",
	// character-level, normalized by total character count
	"chr_frac_letter",
	"chr_frac_digit",
	"chr_frac_punct",
	"chr_frac_space",
	"chr_frac_other",
	// pattern match rates
	"pat_binomial",
	"pat_iso_date",
	"pat_decimal_coord",
	"pat_identifier",
	"pat_unit_suffix",
	// domain plausibility indicators
	"dom_diameter",
	"dom_height",
	"dom_latitude",
	"dom_longitude",
	"dom_density",
	"dom_count",
	// contextual, zero when no table context is supplied
	"ctx_position",
	"ctx_kind_agreement",
	"ctx_numeric_share",
}

var featureIndex = func() map[string]int {
	m := make(map[string]int, len(featureNames))
	for i, n := range featureNames {
		m[n] = i
	}
	return m
}()

// Length is the contract length of every extracted vector.
func Length() int { return len(featureNames) }

// Names returns the feature names in vector order. Callers must not
// modify the returned slice.
func Names() []string { return featureNames }

// Index returns the vector position of a named feature, or -1.
func Index(name string) int {
	if i, ok := featureIndex[name]; ok {
		return i
	}
	return -1
}
