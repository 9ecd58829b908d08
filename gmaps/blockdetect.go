package gmaps

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var blockIndicators = []string{
	`iframe[src*='recaptcha']`,
	`xpath=//iframe[contains(@title, 'reCAPTCHA') or contains(@title, 'recaptcha')]`,
	`div.g-recaptcha`,
	`xpath=//div[contains(text(), 'verify that you are not a robot')]`,
	`xpath=//div[contains(text(), 'Unusual traffic from your computer network')]`,
}

var labelCleaner = regexp.MustCompile(`[^A-Za-z0-9]+`)

// detectBlock reports whether a challenge marker is visible on the page.
// Only visible matches count.
func (r *areaRun) detectBlock(label string) (bool, string) {
	idx, ok := r.visibleBlockMarker()
	if !ok {
		return false, ""
	}

	detail := fmt.Sprintf("challenge marker %q visible (%s)", blockIndicators[idx], label)

	r.em.warn(StageBlock, "%s", detail)

	if path, err := r.saveArtifact(label); err != nil {
		r.em.debug(StageBlock, "could not save challenge screenshot: %v", err)
	} else if path != "" {
		r.em.info(StageBlock, "challenge screenshot saved to %s", path)
	}

	return true, detail
}

// visibleBlockMarker lowers the page default timeout for the marker lookup
// and restores it before returning.
func (r *areaRun) visibleBlockMarker() (int, bool) {
	prev := r.page.DefaultTimeout()
	r.page.SetDefaultTimeout(r.cfg.BlockCheckTimeout)

	defer r.page.SetDefaultTimeout(prev)

	_, idx, err := firstVisible(r.page, blockIndicators...)
	if err != nil {
		return 0, false
	}

	return idx, true
}

func (r *areaRun) saveArtifact(label string) (path string, err error) {
	if r.cfg.ArtifactsDir == "" {
		return "", nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("screenshot panicked: %v", rec)
		}
	}()

	if err := os.MkdirAll(r.cfg.ArtifactsDir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("captcha_%s_%s.png",
		labelCleaner.ReplaceAllString(label, "_"),
		time.Now().Format("20060102_150405"),
	)

	path = filepath.Join(r.cfg.ArtifactsDir, name)

	if err := r.page.Screenshot(path); err != nil {
		return "", err
	}

	return path, nil
}
