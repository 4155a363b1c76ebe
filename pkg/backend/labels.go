package backend

import (
	"bufio"
	"bytes"
	"os"
	"strings"

	"github.com/menta2k/pixuli/pkg/apperrors"
)

// COCOLabels is the bundled vocabulary used when neither a label file nor
// configured default labels are available.
var COCOLabels = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear", "hair drier",
	"toothbrush",
}

// LabelsPathFor derives the label file that sits next to a model:
// model.onnx -> model_labels.txt.
func LabelsPathFor(modelPath string) string {
	if strings.HasSuffix(modelPath, ".onnx") {
		return strings.TrimSuffix(modelPath, ".onnx") + "_labels.txt"
	}
	return modelPath + "_labels.txt"
}

// LoadLabels reads one label per line. A missing file yields fallback;
// an unreadable one is an error.
func LoadLabels(path string, fallback []string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if len(fallback) > 0 {
			return fallback, nil
		}
		return COCOLabels, nil
	}
	if err != nil {
		return nil, apperrors.ModelUnavailable("labels", "failed to read label file "+path, err)
	}

	var labels []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if l := strings.TrimSpace(sc.Text()); l != "" {
			labels = append(labels, l)
		}
	}
	if len(labels) == 0 {
		return nil, apperrors.ModelUnavailable("labels", "label file is empty: "+path, nil)
	}
	return labels, nil
}
