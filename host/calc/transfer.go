package calc

import (
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"hpxfer/hpobj"
	"hpxfer/protocol/kermit"
	"hpxfer/protocol/xmodem"
)

// KermitSend sends the file at path to the calculator's Kermit server,
// named after the file's base name.
func (c *Calculator) KermitSend(path string) error {
	if err := c.checkConnected(); err != nil {
		return err
	}
	data, err := ReadFile(path)
	if err != nil {
		return err
	}

	name := filepath.Base(path)
	sess := kermit.NewSession(c.port, c.cfg.Kermit)
	if err := sess.Send(name, data); err != nil {
		return err
	}
	c.log.WithFields(log.Fields{"file": name, "bytes": len(data)}).Info("File sent")

	if c.cfg.Finish {
		return sess.Finish()
	}
	return nil
}

// KermitGet asks the Kermit server for the variable named after path's base
// name and stores it at path, or at the next free name unless overwrite is
// set. It returns the path written.
func (c *Calculator) KermitGet(path string, overwrite bool) (string, error) {
	if err := c.checkConnected(); err != nil {
		return "", err
	}

	sess := kermit.NewSession(c.port, c.cfg.Kermit)
	remote, data, err := sess.Receive(filepath.Base(path))
	if err != nil {
		return "", err
	}
	written, err := WriteOutput(path, data, overwrite)
	if err != nil {
		return "", err
	}
	c.log.WithFields(log.Fields{"remote": remote, "file": written, "bytes": len(data)}).Info("File saved")

	if c.cfg.Finish {
		return written, sess.Finish()
	}
	return written, nil
}

// XModemSend sends the file at path. With direct set the calculator must
// be waiting in XRECV and the server finish request is not possible.
func (c *Calculator) XModemSend(path string, direct bool) error {
	if err := c.checkConnected(); err != nil {
		return err
	}
	data, err := ReadFile(path)
	if err != nil {
		return err
	}

	sess := xmodem.NewSession(c.port, c.cfg.XModem)
	if err := sess.Send(filepath.Base(path), data, direct); err != nil {
		return err
	}
	return c.finishXModem(sess, direct)
}

// XModemGet fetches the variable named after path's base name, or whatever
// XSEND is sending when direct is set, and stores it like KermitGet.
func (c *Calculator) XModemGet(path string, direct, overwrite bool) (string, error) {
	if err := c.checkConnected(); err != nil {
		return "", err
	}

	sess := xmodem.NewSession(c.port, c.cfg.XModem)
	data, err := sess.Receive(filepath.Base(path), direct)
	if err != nil {
		return "", err
	}
	written, err := WriteOutput(path, data, overwrite)
	if err != nil {
		return "", err
	}
	c.log.WithFields(log.Fields{"file": written, "bytes": len(data)}).Info("File saved")

	return written, c.finishXModem(sess, direct)
}

func (c *Calculator) finishXModem(sess *xmodem.Session, direct bool) error {
	if !c.cfg.Finish {
		return nil
	}
	if direct {
		c.log.Warn("Ignoring finish request in XModem direct mode")
		return nil
	}
	return sess.Finish()
}

// Info decodes the object file at path. It needs no connection.
func Info(path string) (*hpobj.ObjectDescriptor, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return hpobj.ParseFile(data)
}
