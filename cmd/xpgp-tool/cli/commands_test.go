package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/effective-security/xpgp/armor"
	"github.com/effective-security/xpgp/packet"
)

func (s *testSuite) TestVerifyDetached() {
	out := filepath.Join(s.tmpdir, "out.txt")
	cmd := VerifyCmd{
		File:    s.sig,
		Keyring: []string{s.pubring},
		Output:  out,
	}
	err := cmd.Run(s.ctl)
	s.Require().NoError(err)
	s.HasText("Good signature from", "CLI Test <cli@example.com>")
	s.HasTextInFile(out, "artifact content")

	cmd = VerifyCmd{
		File:     s.sig,
		Keyring:  []string{s.pubring},
		Detached: s.clear,
	}
	err = cmd.Run(s.ctl)
	s.Require().Error(err)
	s.HasText("BAD signature from")
}

func (s *testSuite) TestVerifyClearSigned() {
	cmd := VerifyCmd{
		File:    s.clear,
		Keyring: []string{s.pubring},
	}
	s.Require().NoError(cmd.Run(s.ctl))
	s.HasText("Good signature from")
}

func (s *testSuite) TestVerifyFailures() {
	cmd := VerifyCmd{File: s.clear}
	err := cmd.Run(s.ctl)
	s.Require().Error(err)
	s.Contains(err.Error(), "verification failure: 0 invalid signatures, 1 unknown signatures")
	s.HasText("Can't check signature: unknown key")

	cmd = VerifyCmd{File: s.data, Keyring: []string{s.pubring}}
	err = cmd.Run(s.ctl)
	s.Require().Error(err)
	s.Contains(err.Error(), "No signatures found")

	cmd = VerifyCmd{File: s.clear, Keyring: []string{filepath.Join(s.tmpdir, "missing")}}
	s.Error(cmd.Run(s.ctl))
}

func (s *testSuite) TestPackets() {
	cmd := PacketsCmd{File: s.pubring}
	s.Require().NoError(cmd.Run(s.ctl))
	s.HasText("CLI Test <cli@example.com>", "algo RSA1024")

	// v4 signatures are printed without --raw
	s.Out.Reset()
	cmd = PacketsCmd{File: s.sig}
	s.Require().NoError(cmd.Run(s.ctl))
	s.HasText(packet.TagSignatureFooter.String(), "digest SHA256", "keyid "+strings.ToUpper(s.entity.PrimaryKey.KeyIdString()))
	s.NotContains(s.Out.String(), "length")

	s.Out.Reset()
	cmd = PacketsCmd{File: s.sig, RawSubpackets: true, Raw: true}
	s.Require().NoError(cmd.Run(s.ctl))
	s.HasText("SIGNATURE", "length")
}

func (s *testSuite) TestKeysList() {
	cmd := KeysListCmd{Keyring: []string{s.pubring}}
	s.Require().NoError(cmd.Run(s.ctl))
	s.HasText("pub   RSA1024/", "uid   CLI Test <cli@example.com>", "sub   RSA1024/")

	s.Out.Reset()
	cmd.JSON = true
	s.Require().NoError(cmd.Run(s.ctl))
	s.HasText(`"user_ids": [`, `"type": "public"`)
}

func (s *testSuite) TestArmorRoundTrip() {
	armored := filepath.Join(s.tmpdir, "pubring.asc")
	cmd := ArmorCmd{
		File:   s.pubring,
		Type:   armor.TypePublicKey,
		Header: map[string]string{"Comment": "test"},
		Output: armored,
	}
	s.Require().NoError(cmd.Run(s.ctl))
	s.HasTextInFile(armored, "-----BEGIN PGP PUBLIC KEY BLOCK-----", "Comment: test")

	binary := filepath.Join(s.tmpdir, "pubring.bin")
	dcmd := DearmorCmd{File: armored, Output: binary}
	s.Require().NoError(dcmd.Run(s.ctl))

	exp, err := os.ReadFile(s.pubring)
	s.Require().NoError(err)
	act, err := os.ReadFile(binary)
	s.Require().NoError(err)
	s.True(bytes.Equal(exp, act))

	cmd.Type = "CERTIFICATE"
	s.EqualError(cmd.Run(s.ctl), `unsupported block type: "CERTIFICATE"`)
}
