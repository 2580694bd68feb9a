package browser

// launchArgs are passed to Chromium on every launch.
var launchArgs = []string{
	"--no-sandbox",
	"--disable-dev-shm-usage",
	"--disable-gpu",
	"--disable-extensions",
	"--disable-blink-features=AutomationControlled",
}

// ignoredDefaultArgs removes the "controlled by automated software" flag.
var ignoredDefaultArgs = []string{"--enable-automation"}

// stealthScript runs before any page script in every frame.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'languages', { get: () => ['ru-RU', 'ru', 'en-US', 'en'] });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
window.chrome = window.chrome || { runtime: {} };
`
