package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// compatible implements the "~" (compatible release) operator.
//
// When both strings parse as semantic versions the Masterminds tilde
// constraint decides ("~1.2" accepts 1.2.x). Otherwise the candidate must be
// at least target and share every target component except the last, so
// "~=2.4.1" accepts 2.4.7 but not 2.5.0.
func compatible(candidate, target string) bool {
	target = strings.TrimPrefix(target, "=")

	cv, verr := semver.NewVersion(candidate)
	constraint, cerr := semver.NewConstraint("~" + target)
	if verr == nil && cerr == nil {
		return constraint.Check(cv)
	}

	if Encode(candidate).Less(Encode(target)) {
		return false
	}

	want := strings.Split(target, ".")
	have := strings.Split(candidate, ".")
	if len(have) < len(want)-1 {
		return false
	}
	for i := 0; i < len(want)-1; i++ {
		if have[i] != want[i] {
			return false
		}
	}
	return true
}
