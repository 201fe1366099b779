package pano

import(
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/rwcarlsen/goexif/exif"
	"go.uber.org/zap"
	"golang.org/x/image/tiff"
	"gopkg.in/yaml.v2"
)

// Inputs is everything named on the command line: the photos in order,
// plus (optionally) a config and a table of matches.
type Inputs struct {
	Layers  []Layer
	Config  Config
	Matches *MatchTable

	logger  *zap.SugaredLogger
}

func NewInputs(logger *zap.SugaredLogger) *Inputs {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Inputs{Config: NewConfig(), logger: logger}
}

// LoadFilesAndDirs loads each arg in turn; directories are recursed into,
// in name order. Photos are appended as layers in the order found.
func (in *Inputs)LoadFilesAndDirs(args ...string) error {
	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {

		case err != nil:
			return errors.Wrapf(err, "load %s", arg)

		case item.IsDir():
			contents, err := os.ReadDir(arg)
			if err != nil {
				return errors.Wrapf(err, "readdir %s", arg)
			}
			for _, content := range contents {
				if err := in.LoadFilesAndDirs(filepath.Join(arg, content.Name())); err != nil {
					return errors.Wrapf(err, "load %s", arg)
				}
			}

		default:
			if err := in.loadFile(arg); err != nil {
				return errors.Wrapf(err, "loadfile %s", arg)
			}
		}
	}

	return nil
}

func (in *Inputs)loadFile(filename string) error {
	switch strings.ToLower(filepath.Ext(filename)) {

	case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		layer, err := LoadLayer(filename, in.Config.MaxImagePixels)
		if err != nil {
			return err
		}
		in.Layers = append(in.Layers, layer)
		in.logger.Debugf("Loaded layer %s", layer)

	case ".yaml", ".yml":
		contents, err := os.ReadFile(filename)
		if err != nil {
			return errors.Wrapf(err, "read %s", filename)
		}
		if isMatchTable(contents) {
			mt, err := newMatchTableFromYaml(contents)
			if err != nil {
				return err
			}
			in.Matches = mt
			in.logger.Infof("Loaded matches for %d pairs from %s", len(mt.Pairs), filename)
		} else {
			cfg, err := newConfigFromYaml(contents)
			if err != nil {
				return err
			}
			in.Config = cfg
			in.logger.Infof("Loaded base configuration from %s", filename)
		}

	default:
		in.logger.Debugf("Ignoring %s", filename)
	}

	return nil
}

// LoadLayer decodes an image, turns it upright according to its EXIF
// orientation, and shrinks it to at most maxPixels.
func LoadLayer(filename string, maxPixels int) (Layer, error) {
	l := Layer{LoadFilename: filename, Orientation: 1, Scale: 1}

	contents, err := os.ReadFile(filename)
	if err != nil {
		return l, errors.Wrapf(err, "read %s", filename)
	}

	img, err := decodeImage(filepath.Ext(filename), bytes.NewReader(contents))
	if err != nil {
		return l, errors.Wrapf(err, "decode %s", filename)
	}
	l.LoadedImage = img

	// Most PNGs have no EXIF, so a failure here just means upright
	if ex, err := exif.Decode(bytes.NewReader(contents)); err == nil {
		if tag, err := ex.Get(exif.Orientation); err == nil {
			if val, err := tag.Int(0); err == nil {
				l.Orientation = val
			}
		}
	}

	l.Image, l.Scale = ResizeToFit(Orient(img, l.Orientation), maxPixels)
	return l, nil
}

func decodeImage(ext string, r io.Reader) (image.Image, error) {
	switch strings.ToLower(ext) {
	case ".png":           return png.Decode(r)
	case ".jpg", ".jpeg":  return jpeg.Decode(r)
	case ".tif", ".tiff":  return tiff.Decode(r)
	default:
		return nil, errors.Errorf("unknown image type %q", ext)
	}
}

// Orient applies an EXIF orientation (1-8) so the image is upright
func Orient(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2: return imaging.FlipH(img)
	case 3: return imaging.Rotate180(img)
	case 4: return imaging.FlipV(img)
	case 5: return imaging.Transpose(img)
	case 6: return imaging.Rotate270(img)
	case 7: return imaging.Transverse(img)
	case 8: return imaging.Rotate90(img)
	default:
		return img
	}
}

func isMatchTable(b []byte) bool {
	peek := struct {
		Pairs []yaml.MapSlice `yaml:"pairs"`
	}{}
	return yaml.Unmarshal(b, &peek) == nil && len(peek.Pairs) > 0
}
