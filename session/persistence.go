package session

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	"github.com/GoodFridayRobotics/okvis2/cameras"
	"github.com/GoodFridayRobotics/okvis2/estimation"
	"github.com/GoodFridayRobotics/okvis2/frame"
	"github.com/GoodFridayRobotics/okvis2/kinematics"
)

// Session files are gzip compressed JSON, identified by a magic string and a
// format version.
const (
	sessionMagic         = "okvis2.session"
	sessionFormatVersion = 1
)

type sessionEnvelope struct {
	Magic   string        `json:"magic"`
	Version int           `json:"version"`
	SavedAt time.Time     `json:"saved_at"`
	Imu     ImuParameters `json:"imu_parameters"`
	Rig     rigRecord     `json:"camera_rig"`
	Graph   graphRecord   `json:"graph"`
	Frames  []frameRecord `json:"frames"`
}

type rigRecord struct {
	Cameras []cameraRecord `json:"cameras"`
}

type cameraRecord struct {
	Intrinsics           cameras.PinholeCamera `json:"intrinsics"`
	DistortionModel      string                `json:"distortion_model"`
	DistortionParameters []float64             `json:"distortion_parameters"`
	// TSC is the camera to body transform as x y z qx qy qz qw.
	TSC []float64 `json:"t_sc"`
}

type graphRecord struct {
	States                  []stateRecord              `json:"states"`
	Landmarks               []landmarkRecord           `json:"landmarks"`
	RelativePoseConstraints []relativeConstraintRecord `json:"relative_pose_constraints"`
	PosePriors              []priorRecord              `json:"pose_priors"`
}

type stateRecord struct {
	ID   uint64    `json:"id"`
	Pose []float64 `json:"t_ws"`
}

type landmarkRecord struct {
	ID    uint64                      `json:"id"`
	Point kinematics.HomogeneousPoint `json:"point"`
}

type relativeConstraintRecord struct {
	A           uint64      `json:"a"`
	B           uint64      `json:"b"`
	Measurement []float64   `json:"t_ab"`
	Information [][]float64 `json:"information"`
}

type priorRecord struct {
	State       uint64      `json:"state"`
	Measurement []float64   `json:"t_ws"`
	Information [][]float64 `json:"information"`
}

type frameRecord struct {
	ID      uint64              `json:"id"`
	Cameras []frameCameraRecord `json:"cameras"`
}

type frameCameraRecord struct {
	Keypoints   []frame.Keypoint   `json:"keypoints"`
	Descriptors []frame.Descriptor `json:"descriptors,omitempty"`
	LandmarkIDs []uint64           `json:"landmark_ids"`
}

// Save serializes the component to path. The data is written to a temporary
// file next to the destination and moved into place, so on any failure a
// pre-existing file keeps its previous content.
func (c *Component) Save(path string, logger golog.Logger) error {
	if err := writeSessionFile(path, c.buildEnvelope()); err != nil {
		return err
	}
	logger.Infow("session saved", "path", path,
		"states", c.graph.NumStates(),
		"landmarks", c.graph.NumLandmarks(),
		"constraints", c.graph.NumConstraints(),
		"frames", len(c.frames))
	return nil
}

// Load replaces the component content with the session stored at path. The
// file is parsed and validated completely before anything is touched; on any
// failure the component stays exactly as it was. A borrowed graph receives
// the loaded content in place, so the owner observes the update.
func (c *Component) Load(path string, logger golog.Logger) error {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "cannot open session file")
	}
	defer utils.UncheckedErrorFunc(f.Close)
	gz, err := gzip.NewReader(f)
	if err != nil {
		return errors.Wrap(err, "cannot read session file header")
	}
	defer utils.UncheckedErrorFunc(gz.Close)
	data, err := io.ReadAll(gz)
	if err != nil {
		return errors.Wrap(err, "cannot decompress session file")
	}
	var env sessionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return errors.Wrap(err, "cannot parse session file")
	}
	loaded, err := parseEnvelope(&env)
	if err != nil {
		return err
	}

	c.imuParameters = loaded.imu
	c.rig = loaded.rig
	c.graph.ReplaceContents(loaded.graph)
	c.frames = loaded.frames
	logger.Infow("session loaded", "path", path,
		"saved_at", env.SavedAt,
		"states", c.graph.NumStates(),
		"landmarks", c.graph.NumLandmarks(),
		"constraints", c.graph.NumConstraints(),
		"frames", len(c.frames))
	return nil
}

func (c *Component) buildEnvelope() *sessionEnvelope {
	env := &sessionEnvelope{
		Magic:   sessionMagic,
		Version: sessionFormatVersion,
		SavedAt: c.clock.Now().UTC(),
		Imu:     c.imuParameters,
	}

	for i := 0; i < c.rig.NumCameras(); i++ {
		model := c.rig.Camera(i)
		env.Rig.Cameras = append(env.Rig.Cameras, cameraRecord{
			Intrinsics:           *model.PinholeCamera,
			DistortionModel:      string(model.Distortion.ModelType()),
			DistortionParameters: model.Distortion.Parameters(),
			TSC:                  c.rig.TSC(i).Parameters(),
		})
	}

	for _, id := range c.graph.StateIDs() {
		pose, _ := c.graph.Pose(id)
		env.Graph.States = append(env.Graph.States, stateRecord{
			ID:   uint64(id),
			Pose: pose.Parameters(),
		})
	}
	for _, id := range c.graph.LandmarkIDs() {
		point, _ := c.graph.Landmark(id)
		env.Graph.Landmarks = append(env.Graph.Landmarks, landmarkRecord{
			ID:    uint64(id),
			Point: point,
		})
	}
	for _, rc := range c.graph.RelativePoseConstraints() {
		env.Graph.RelativePoseConstraints = append(env.Graph.RelativePoseConstraints,
			relativeConstraintRecord{
				A:           uint64(rc.A),
				B:           uint64(rc.B),
				Measurement: rc.Term.Measurement().Parameters(),
				Information: matrixRows(rc.Term.Information()),
			})
	}
	for _, pp := range c.graph.PosePriors() {
		env.Graph.PosePriors = append(env.Graph.PosePriors, priorRecord{
			State:       uint64(pp.State),
			Measurement: pp.Term.Measurement().Parameters(),
			Information: matrixRows(pp.Term.Information()),
		})
	}

	frameIDs := make([]uint64, 0, len(c.frames))
	for id := range c.frames {
		frameIDs = append(frameIDs, id)
	}
	slices.Sort(frameIDs)
	for _, id := range frameIDs {
		frm := c.frames[id]
		rec := frameRecord{ID: id}
		for cam := 0; cam < frm.NumCameras(); cam++ {
			var fc frameCameraRecord
			numK := frm.NumKeypoints(cam)
			for k := 0; k < numK; k++ {
				fc.Keypoints = append(fc.Keypoints, frm.Keypoint(cam, k))
				fc.LandmarkIDs = append(fc.LandmarkIDs, frm.LandmarkID(cam, k))
			}
			if numK > 0 && frm.Descriptor(cam, 0) != nil {
				for k := 0; k < numK; k++ {
					fc.Descriptors = append(fc.Descriptors, frm.Descriptor(cam, k))
				}
			}
			rec.Cameras = append(rec.Cameras, fc)
		}
		env.Frames = append(env.Frames, rec)
	}
	return env
}

type loadedSession struct {
	imu    ImuParameters
	rig    *cameras.Rig
	graph  *estimation.Graph
	frames map[uint64]*frame.Multiframe
}

func parseEnvelope(env *sessionEnvelope) (*loadedSession, error) {
	if env.Magic != sessionMagic {
		return nil, errors.Errorf("not a session file, magic %q", env.Magic)
	}
	if env.Version != sessionFormatVersion {
		return nil, errors.Errorf("unsupported session format version %d", env.Version)
	}

	models := make([]cameras.CameraModel, 0, len(env.Rig.Cameras))
	extrinsics := make([]kinematics.Transformation, 0, len(env.Rig.Cameras))
	for i, rec := range env.Rig.Cameras {
		dist, err := cameras.NewDistorter(cameras.DistortionType(rec.DistortionModel), rec.DistortionParameters)
		if err != nil {
			return nil, errors.Wrapf(err, "camera %d", i)
		}
		intrinsics := rec.Intrinsics
		models = append(models, cameras.CameraModel{PinholeCamera: &intrinsics, Distortion: dist})
		tSC, err := poseFromRecord(rec.TSC, "extrinsics")
		if err != nil {
			return nil, errors.Wrapf(err, "camera %d", i)
		}
		extrinsics = append(extrinsics, tSC)
	}
	rig, err := cameras.NewRig(models, extrinsics)
	if err != nil {
		return nil, errors.Wrap(err, "cannot rebuild camera rig")
	}

	graph := estimation.NewGraph()
	for _, rec := range env.Graph.States {
		pose, err := poseFromRecord(rec.Pose, "pose")
		if err != nil {
			return nil, errors.Wrapf(err, "state %d", rec.ID)
		}
		if err := graph.AddState(estimation.StateID(rec.ID), pose); err != nil {
			return nil, err
		}
	}
	for _, rec := range env.Graph.Landmarks {
		if err := graph.AddLandmark(estimation.LandmarkID(rec.ID), rec.Point); err != nil {
			return nil, err
		}
	}
	for i, rec := range env.Graph.RelativePoseConstraints {
		measurement, err := poseFromRecord(rec.Measurement, "measurement")
		if err != nil {
			return nil, errors.Wrapf(err, "relative pose constraint %d", i)
		}
		information, err := symFromRows(rec.Information)
		if err != nil {
			return nil, errors.Wrapf(err, "relative pose constraint %d", i)
		}
		term, err := estimation.NewRelativePoseError(information, measurement)
		if err != nil {
			return nil, errors.Wrapf(err, "relative pose constraint %d", i)
		}
		if err := graph.AddRelativePoseConstraint(
			estimation.StateID(rec.A), estimation.StateID(rec.B), term); err != nil {
			return nil, err
		}
	}
	for i, rec := range env.Graph.PosePriors {
		measurement, err := poseFromRecord(rec.Measurement, "measurement")
		if err != nil {
			return nil, errors.Wrapf(err, "pose prior %d", i)
		}
		information, err := symFromRows(rec.Information)
		if err != nil {
			return nil, errors.Wrapf(err, "pose prior %d", i)
		}
		term, err := estimation.NewPoseError(information, measurement)
		if err != nil {
			return nil, errors.Wrapf(err, "pose prior %d", i)
		}
		if err := graph.AddPosePrior(estimation.StateID(rec.State), term); err != nil {
			return nil, err
		}
	}

	frames := make(map[uint64]*frame.Multiframe, len(env.Frames))
	for _, rec := range env.Frames {
		if _, ok := frames[rec.ID]; ok {
			return nil, errors.Errorf("frame %d appears twice", rec.ID)
		}
		if len(rec.Cameras) != rig.NumCameras() {
			return nil, errors.Errorf("frame %d has %d cameras, rig has %d",
				rec.ID, len(rec.Cameras), rig.NumCameras())
		}
		frm := frame.NewMultiframe(rec.ID, rig)
		for cam, fc := range rec.Cameras {
			if err := frm.SetKeypoints(cam, fc.Keypoints); err != nil {
				return nil, errors.Wrapf(err, "frame %d", rec.ID)
			}
			if len(fc.Descriptors) > 0 {
				if err := frm.SetDescriptors(cam, fc.Descriptors); err != nil {
					return nil, errors.Wrapf(err, "frame %d", rec.ID)
				}
			}
			if len(fc.LandmarkIDs) != len(fc.Keypoints) {
				return nil, errors.Errorf("frame %d camera %d has %d landmark ids for %d keypoints",
					rec.ID, cam, len(fc.LandmarkIDs), len(fc.Keypoints))
			}
			for k, lmID := range fc.LandmarkIDs {
				if lmID == 0 {
					continue
				}
				if err := frm.SetLandmarkID(cam, k, lmID); err != nil {
					return nil, errors.Wrapf(err, "frame %d", rec.ID)
				}
			}
		}
		frames[rec.ID] = frm
	}

	return &loadedSession{imu: env.Imu, rig: rig, graph: graph, frames: frames}, nil
}

// writeSessionFile writes the envelope to a temporary file in the target
// directory, syncs it and renames it over path.
func writeSessionFile(path string, env *sessionEnvelope) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "cannot create temporary session file")
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			utils.UncheckedError(tmp.Close())
			utils.UncheckedError(os.Remove(tmpName))
		}
	}()

	gz := gzip.NewWriter(tmp)
	if err := json.NewEncoder(gz).Encode(env); err != nil {
		return errors.Wrap(err, "cannot encode session")
	}
	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "cannot finish session compression")
	}
	if err := tmp.Sync(); err != nil {
		return errors.Wrap(err, "cannot sync session file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "cannot close session file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "cannot move session file into place")
	}
	tmpName = ""
	return nil
}

func poseFromRecord(params []float64, what string) (kinematics.Transformation, error) {
	if len(params) != kinematics.TransformationParameterDim {
		return kinematics.Transformation{}, errors.Errorf("%s needs %d parameters, got %d",
			what, kinematics.TransformationParameterDim, len(params))
	}
	qn := math.Sqrt(params[3]*params[3] + params[4]*params[4] + params[5]*params[5] + params[6]*params[6])
	if qn < 1e-12 {
		return kinematics.Transformation{}, errors.Errorf("%s has a degenerate quaternion", what)
	}
	return kinematics.NewTransformationFromParameters(params), nil
}

func symFromRows(rows [][]float64) (*mat.SymDense, error) {
	if len(rows) != 6 {
		return nil, errors.Errorf("information matrix needs 6 rows, got %d", len(rows))
	}
	for i := range rows {
		if len(rows[i]) != 6 {
			return nil, errors.Errorf("information matrix row %d needs 6 columns, got %d", i, len(rows[i]))
		}
	}
	m := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		for j := i; j < 6; j++ {
			if rows[i][j] != rows[j][i] {
				return nil, errors.New("information matrix is not symmetric")
			}
			m.SetSym(i, j, rows[i][j])
		}
	}
	return m, nil
}

func matrixRows(m *mat.SymDense) [][]float64 {
	rows := make([][]float64, 6)
	for i := range rows {
		rows[i] = make([]float64, 6)
		for j := range rows[i] {
			rows[i][j] = m.At(i, j)
		}
	}
	return rows
}
