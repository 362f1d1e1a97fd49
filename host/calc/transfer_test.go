package calc

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"hpxfer/hpobj"
	"hpxfer/protocol"
	"hpxfer/protocol/kermit"
	"hpxfer/protocol/prototest"
	"hpxfer/protocol/xmodem"
)

func testCalculator(port *prototest.ScriptedPort, finish bool) (*Calculator, *test.Hook) {
	logger, hook := test.NewNullLogger()

	cfg := DefaultConfig()
	cfg.Logger = logger
	cfg.Finish = finish
	cfg.Kermit.Settle = 0
	cfg.Kermit.Logger = logger
	cfg.XModem.GetSettle = 0
	cfg.XModem.BlockSettle = 0
	cfg.XModem.FinishSettle = 0
	cfg.XModem.Logger = logger

	c := NewCalculator(cfg)
	c.Attach(port)
	return c, hook
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// kermitServer ACKs every packet at its own sequence number
func kermitServer(written []byte) []byte {
	p, err := kermit.Decode(written)
	if err != nil {
		return nil
	}
	return kermit.Packet{Seq: p.Seq, Type: kermit.TypeAck}.Encode()
}

func TestNotConnected(t *testing.T) {
	c := NewCalculator(nil)
	if err := c.KermitSend("x"); err == nil {
		t.Error("KermitSend without a port succeeded")
	}
	if _, err := c.XModemGet("x", false, false); err == nil {
		t.Error("XModemGet without a port succeeded")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close without a port: %v", err)
	}
}

func TestClose(t *testing.T) {
	port := prototest.NewScriptedPort(nil)
	c, _ := testCalculator(port, false)

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !port.Closed() || c.IsConnected() {
		t.Error("port left open")
	}
}

func TestKermitSendWithFinish(t *testing.T) {
	path := writeTemp(t, "PRG", []byte("\x01\x02 program"))
	port := prototest.NewScriptedPort(kermitServer)
	c, _ := testCalculator(port, true)

	if err := c.KermitSend(path); err != nil {
		t.Fatalf("KermitSend: %v", err)
	}

	writes := port.Writes()
	header, err := kermit.Decode(writes[1])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if header.Type != kermit.TypeFile || string(header.Data) != "PRG" {
		t.Errorf("file header = %v %q, want F packet for PRG", header, header.Data)
	}
	if diff := cmp.Diff([]byte("\x01$ GF4\r"), writes[len(writes)-1]); diff != "" {
		t.Errorf("last write should finish the server (-want +got):\n%s", diff)
	}
}

func TestKermitSendMissingFile(t *testing.T) {
	port := prototest.NewScriptedPort(kermitServer)
	c, _ := testCalculator(port, false)

	if err := c.KermitSend(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("KermitSend of a missing file succeeded")
	}
	if n := len(port.Writes()); n != 0 {
		t.Errorf("wrote %d packets for a missing file", n)
	}
}

func TestKermitGet(t *testing.T) {
	remote := []kermit.Packet{
		{Seq: 0, Type: kermit.TypeSendInit, Data: kermit.SendInitData()},
		{Seq: 1, Type: kermit.TypeFile, Data: []byte("NOTES")},
		{Seq: 2, Type: kermit.TypeData, Data: []byte("hi#J")},
		{Seq: 3, Type: kermit.TypeEOF},
		{Seq: 4, Type: kermit.TypeBreak},
	}
	i := 0
	port := prototest.NewScriptedPort(func([]byte) []byte {
		if i >= len(remote) {
			return nil
		}
		i++
		return remote[i-1].Encode()
	})
	c, _ := testCalculator(port, false)

	path := filepath.Join(t.TempDir(), "NOTES")
	written, err := c.KermitGet(path, false)
	if err != nil {
		t.Fatalf("KermitGet: %v", err)
	}
	if written != path {
		t.Errorf("wrote %s, want %s", written, path)
	}
	data, _ := os.ReadFile(written)
	if string(data) != "hi\n" {
		t.Errorf("file holds %q", data)
	}
}

func TestXModemSendDirectIgnoresFinish(t *testing.T) {
	path := writeTemp(t, "GAME", bytes.Repeat([]byte{7}, 200))
	port := prototest.NewScriptedPort(func([]byte) []byte { return []byte{protocol.ACK} })
	port.Queue(protocol.NAK)
	c, hook := testCalculator(port, true)

	if err := c.XModemSend(path, true); err != nil {
		t.Fatalf("XModemSend: %v", err)
	}

	writes := port.Writes()
	if diff := cmp.Diff([]byte{protocol.EOT}, writes[len(writes)-1]); diff != "" {
		t.Errorf("last write mismatch (-want +got):\n%s", diff)
	}
	if e := hook.LastEntry(); e == nil || e.Level != log.WarnLevel {
		t.Errorf("expected a warning about the ignored finish, got %v", e)
	}
}

func TestXModemGetServer(t *testing.T) {
	payload := make([]byte, xmodem.ShortBlock)
	copy(payload, "stored variable")

	replies := [][]byte{
		{protocol.ACK},
		xmodem.Block{Seq: 1, Data: payload}.Encode(xmodem.Normal),
		{protocol.EOT},
	}
	i := 0
	port := prototest.NewScriptedPort(func([]byte) []byte {
		if i >= len(replies) {
			return nil
		}
		i++
		return replies[i-1]
	})
	c, _ := testCalculator(port, true)

	dir := t.TempDir()
	path := filepath.Join(dir, "VAR")
	if err := os.WriteFile(path, []byte("keep me"), 0o644); err != nil {
		t.Fatal(err)
	}

	written, err := c.XModemGet(path, false, false)
	if err != nil {
		t.Fatalf("XModemGet: %v", err)
	}
	if written != path+".1" {
		t.Errorf("wrote %s, want %s.1", written, path)
	}
	data, _ := os.ReadFile(written)
	if string(data) != "stored variable" {
		t.Errorf("file holds %q", data)
	}

	writes := port.Writes()
	if diff := cmp.Diff(xmodem.CommandPacket(xmodem.CmdGet, "VAR"), writes[0]); diff != "" {
		t.Errorf("command mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]byte{xmodem.CmdQuit}, writes[len(writes)-1]); diff != "" {
		t.Errorf("last write should quit the server (-want +got):\n%s", diff)
	}
}

func TestXModemGetCancelledWritesNothing(t *testing.T) {
	port := prototest.NewScriptedPort(func([]byte) []byte { return []byte{protocol.CAN} })
	c, _ := testCalculator(port, false)

	path := filepath.Join(t.TempDir(), "VAR")
	_, err := c.XModemGet(path, true, false)
	if !errors.Is(err, protocol.ErrTransferCancelled) {
		t.Fatalf("expected ErrTransferCancelled, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("cancelled transfer left a file behind: %v", err)
	}
}

func TestInfo(t *testing.T) {
	object := hpobj.Nibbles{1, 1, 9, 2, 0, 5, 4, 3, 2, 1}
	path := writeTemp(t, "BINT", append([]byte("HPHP48-R"), object.Bytes()...))

	d, err := Info(path)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if d.Length != 10 || d.ROMRevision != 'R' || d.Checksum != hpobj.Checksum(object) {
		t.Errorf("Info = %+v", d)
	}
}

func TestInfoRejectsHP49(t *testing.T) {
	path := writeTemp(t, "OBJ", []byte("HPHP49-C\x11\x29\x00\x00\x00"))

	if _, err := Info(path); !errors.Is(err, hpobj.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}
