package packet_test

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/effective-security/xpgp/internal/testutil"
	"github.com/effective-security/xpgp/packet"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/openpgp"
	xpacket "golang.org/x/crypto/openpgp/packet"
)

var (
	entityOnce sync.Once
	entity     *openpgp.Entity
	entityErr  error
)

// testEntity returns an RSA signing key with an RSA encryption subkey
func testEntity(t *testing.T) *openpgp.Entity {
	entityOnce.Do(func() {
		entity, entityErr = openpgp.NewEntity("Test User", "xpgp", "test@example.com", &xpacket.Config{RSABits: testutil.RSABits})
	})
	require.NoError(t, entityErr)
	return entity
}

func keyID(id uint64) [8]byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], id)
	return b
}

func randBytes(t *testing.T, n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func newPacket(tag packet.Tag, body []byte) []byte {
	return append(packet.AppendNewHeader(nil, tag, uint32(len(body))), body...)
}

func literalPacket(name string, data []byte) []byte {
	body := []byte{'b', byte(len(name))}
	body = append(body, name...)
	body = binary.BigEndian.AppendUint32(body, uint32(time.Now().Unix()))
	body = append(body, data...)
	return newPacket(packet.TagLiteralData, body)
}

func onePassPacket(e *openpgp.Entity, hash byte) []byte {
	body := []byte{3, 0x00, hash, byte(e.PrimaryKey.PubKeyAlgo)}
	id := keyID(e.PrimaryKey.KeyId)
	body = append(body, id[:]...)
	body = append(body, 1)
	return newPacket(packet.TagOnePassSignature, body)
}

// signedMessage returns a one-pass signed literal message
func signedMessage(t *testing.T, e *openpgp.Entity, data []byte) []byte {
	msg := onePassPacket(e, 8)
	msg = append(msg, literalPacket("data.txt", data)...)
	return append(msg, testutil.DetachSign(t, e, data)...)
}

type collector struct {
	pkts []*packet.Packet
}

func (c *collector) callback(pkt *packet.Packet, next packet.Callback) packet.Result {
	c.pkts = append(c.pkts, pkt)
	return next.Call(pkt)
}

// tags returns the tags of the collected packets without the framing
// pseudo packets
func (c *collector) tags() []packet.Tag {
	var tags []packet.Tag
	for _, p := range c.pkts {
		switch p.Tag {
		case packet.TagPTag, packet.TagPacketEnd, packet.TagParserError:
		default:
			if !p.Tag.IsSubpacket() {
				tags = append(tags, p.Tag)
			}
		}
	}
	return tags
}

func (c *collector) find(tag packet.Tag) []*packet.Packet {
	var res []*packet.Packet
	for _, p := range c.pkts {
		if p.Tag == tag {
			res = append(res, p)
		}
	}
	return res
}

func (c *collector) body(tag packet.Tag) []byte {
	var b []byte
	for _, p := range c.find(tag) {
		b = append(b, p.Content.(*packet.Body).Data...)
	}
	return b
}

func parse(data []byte, opts *packet.Options) (*packet.Stream, *collector, error) {
	if opts == nil {
		opts = &packet.Options{Accumulate: true}
		opts.AllSubpackets(packet.SubpacketsParsed)
	}
	c := &collector{}
	s := packet.NewStream(bytes.NewReader(data), opts)
	s.Push(c.callback)
	err := s.Parse()
	return s, c, err
}

type upcalls struct {
	passphrase []byte
	keys       []*packet.SecretKey
}

func (u *upcalls) Passphrase(_ *packet.Packet) []byte {
	return u.passphrase
}

func (u *upcalls) SecretKey(pk *packet.PKSessionKey) *packet.SecretKey {
	for _, k := range u.keys {
		if k.KeyID() == pk.KeyID {
			return k
		}
	}
	return nil
}
