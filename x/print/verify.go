package print

import (
	"fmt"
	"io"

	"github.com/effective-security/xpgp/gpg"
)

// ValidationResult prints the signatures of the result
func ValidationResult(w io.Writer, res *gpg.ValidationResult) {
	for _, si := range res.Valid {
		fmt.Fprintf(w, "Good signature from %s\n", signer(si))
	}
	for _, si := range res.Invalid {
		fmt.Fprintf(w, "BAD signature from %s: %s\n", signer(si), si.Err.Error())
	}
	for _, si := range res.Unknown {
		fmt.Fprintf(w, "Can't check signature: unknown key %s\n", hexID(si.Signature.SignerID[:]))
	}
}

func signer(si *gpg.SignatureInfo) string {
	s := si.Key.IDString()
	if uid, err := si.Key.PrimaryUserID(); err == nil {
		s += fmt.Sprintf(" %q", UserID(uid))
	}
	if !si.Signature.CreationTime.IsZero() {
		s += " made " + timeString(si.Signature.CreationTime)
	}
	return s
}
