package main

import (
	"testing"

	"github.com/matryer/is"
	"github.com/spf13/afero"
)

// testFDC mounts a 720K image in drive 0 with every sector filled with
// its own index, and runs the motor up to speed.
func testFDC(t *testing.T) (*FDC, afero.Fs) {
	t.Helper()
	is := is.New(t)
	fs := afero.NewMemMapFs()
	img := make([]byte, fdCyls*fdHeads*fdSectors*fdSecSize)
	for i := range img {
		img[i] = byte(i / fdSecSize)
	}
	is.NoErr(afero.WriteFile(fs, "fd.img", img, 0644))

	f := NewFDC(&Tracer{})
	is.NoErr(f.Attach(fs, 0, "fd.img"))
	f.Write(2, 0x14) // SRST high, drive 0 motor on
	for i := 0; i < fdSpinUp; i++ {
		f.Tick()
	}
	return f, fs
}

func cmdBytes(f *FDC, bytes ...byte) {
	for _, b := range bytes {
		f.Write(1, b)
	}
}

func results(f *FDC) []byte {
	var r []byte
	for f.msr&fdcDIO != 0 {
		r = append(r, f.Read(1))
	}
	return r
}

func TestFDCMotorSpinUp(t *testing.T) {
	is := is.New(t)
	fs := afero.NewMemMapFs()
	is.NoErr(afero.WriteFile(fs, "fd.img", make([]byte, 737280), 0644))
	f := NewFDC(&Tracer{})
	is.NoErr(f.Attach(fs, 0, "fd.img"))

	f.Write(2, 0x14)
	f.Tick()
	is.Equal(f.drives[0].ready(), false) // still spinning up

	for i := 0; i < fdSpinUp; i++ {
		f.Tick()
	}
	is.Equal(f.drives[0].ready(), true)

	f.Write(2, 0x04) // motor off
	f.Tick()
	is.Equal(f.drives[0].ready(), false)
}

func TestFDCRecalibrateSeek(t *testing.T) {
	is := is.New(t)
	f, _ := testFDC(t)

	cmdBytes(f, 0x07, 0x00) // RECALIBRATE drive 0
	cmdBytes(f, 0x08)       // SENSE INTERRUPT STATUS
	is.Equal(results(f), []byte{0x20, 0x00})

	cmdBytes(f, 0x0F, 0x00, 0x17) // SEEK to cylinder 23
	cmdBytes(f, 0x08)
	is.Equal(results(f), []byte{0x20, 0x17})

	// No seek pending: ST0 reports invalid.
	cmdBytes(f, 0x08)
	is.Equal(results(f), []byte{0x80})
}

func TestFDCSenseDriveStatus(t *testing.T) {
	is := is.New(t)
	f, _ := testFDC(t)
	cmdBytes(f, 0x04, 0x00)
	r := results(f)
	is.Equal(len(r), 1)
	is.Equal(r[0], byte(0x38)) // two sided, track 0, ready
}

func TestFDCReadSector(t *testing.T) {
	is := is.New(t)
	f, _ := testFDC(t)

	// READ DATA c=2 h=0 r=1, EOT 1.
	cmdBytes(f, 0x06, 0x00, 0x02, 0x00, 0x01, 0x02, 0x01, 0x1B, 0xFF)
	is.True(f.msr&fdcEXM != 0)
	is.True(f.msr&fdcDIO != 0)

	want := byte((2*fdHeads + 0) * fdSectors) // sector index of c2 h0 r1
	for i := 0; i < fdSecSize; i++ {
		is.Equal(f.Read(1), want)
	}

	// EOT reached: execution ends with the end-of-cylinder flags.
	r := results(f)
	is.Equal(len(r), 7)
	is.Equal(r[0], byte(0x40)) // ST0 abnormal termination
	is.Equal(r[1], byte(0x80)) // ST1 end of cylinder
	is.Equal(f.msr, byte(fdcRQM))
}

func TestFDCReadTerminalCount(t *testing.T) {
	is := is.New(t)
	f, _ := testFDC(t)

	cmdBytes(f, 0x06, 0x00, 0x00, 0x00, 0x01, 0x02, 0x09, 0x1B, 0xFF)
	for i := 0; i < 16; i++ {
		f.Read(1)
	}
	f.Write(4, 0) // TC cuts the transfer short
	r := results(f)
	is.Equal(len(r), 7)
	is.Equal(r[0], byte(0x00)) // clean ST0
	is.Equal(f.msr, byte(fdcRQM))
}

func TestFDCWriteSector(t *testing.T) {
	is := is.New(t)
	f, fs := testFDC(t)

	// WRITE DATA c=0 h=1 r=2, EOT 2.
	cmdBytes(f, 0x05, 0x04, 0x00, 0x01, 0x02, 0x02, 0x02, 0x1B, 0xFF)
	is.True(f.msr&fdcEXM != 0)
	is.True(f.msr&fdcDIO == 0) // CPU to controller

	for i := 0; i < fdSecSize; i++ {
		f.Write(1, 0x77)
	}
	results(f)

	img, err := afero.ReadFile(fs, "fd.img")
	is.NoErr(err)
	off := ((0*fdHeads + 1) * fdSectors + 1) * fdSecSize
	is.Equal(img[off], byte(0x77))
	is.Equal(img[off+fdSecSize-1], byte(0x77))
	is.Equal(img[off-1], byte(off/fdSecSize-1)) // neighbour intact
}

func TestFDCNotReady(t *testing.T) {
	is := is.New(t)
	fs := afero.NewMemMapFs()
	is.NoErr(afero.WriteFile(fs, "fd.img", make([]byte, 737280), 0644))
	f := NewFDC(&Tracer{})
	is.NoErr(f.Attach(fs, 0, "fd.img"))

	// Motor never started: the transfer refuses immediately.
	cmdBytes(f, 0x06, 0x00, 0x00, 0x00, 0x01, 0x02, 0x01, 0x1B, 0xFF)
	r := results(f)
	is.Equal(len(r), 7)
	is.Equal(r[0]&0x40, byte(0x40))
}

func TestFDCInvalidCommand(t *testing.T) {
	is := is.New(t)
	f, _ := testFDC(t)
	f.Write(1, 0x1F)
	is.Equal(results(f), []byte{0x80})
}

func TestFDCSoftReset(t *testing.T) {
	is := is.New(t)
	f, _ := testFDC(t)
	cmdBytes(f, 0x07, 0x00) // leave an interrupt pending
	f.Write(2, 0x00)        // SRST low resets the controller
	is.Equal(f.msr, byte(fdcRQM))
	cmdBytes(f, 0x08)
	is.Equal(results(f), []byte{0x20, 0x00}) // seek state survives in the drive
}

func TestFDCSecondDriveAbsent(t *testing.T) {
	is := is.New(t)
	f, _ := testFDC(t)
	f.Write(2, 0x34) // both motors on
	for i := 0; i < fdSpinUp; i++ {
		f.Tick()
	}
	cmdBytes(f, 0x06, 0x01, 0x00, 0x00, 0x01, 0x02, 0x01, 0x1B, 0xFF)
	r := results(f)
	is.Equal(r[0], byte(0x41)) // not ready, unit 1
}
